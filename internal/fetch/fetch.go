package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/yourlabs/compoctl/internal/progress"
	"github.com/yourlabs/compoctl/pkg/version"
)

// IsURL reports whether a -f value must be downloaded before use
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

type Fetcher struct {
	fs       afero.Fs
	dir      string
	client   *retryablehttp.Client
	progress *progress.Factory
	logger   logrus.FieldLogger
}

type Options struct {
	Retries int
	Timeout time.Duration
}

// New returns a Fetcher saving downloads under dir
func New(fs afero.Fs, dir string, opts Options, pf *progress.Factory, logger logrus.FieldLogger) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	client.Logger = leveledLogger{logger}

	return &Fetcher{fs: fs, dir: dir, client: client, progress: pf, logger: logger}
}

// FileName is the local name a URL is saved under: its last path segment
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("url %s has no file name", rawURL)
	}
	return name, nil
}

// Materialize downloads rawURL into the project directory and returns the
// local path, overwriting any existing file of the same name. Non URL
// references are returned unchanged.
func (f *Fetcher) Materialize(ctx context.Context, ref string) (string, error) {
	if !IsURL(ref) {
		return ref, nil
	}

	name, err := FileName(ref)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(f.dir, name)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", ref, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	f.logger.WithField("url", ref).Info("Downloading compose file")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: %s", ref, resp.Status)
	}

	file, err := f.fs.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer file.Close()

	pw := f.progress.Writer(file, resp.ContentLength, "Downloading "+name)
	n, err := io.Copy(pw, resp.Body)
	_ = pw.Close()
	if err != nil {
		return "", fmt.Errorf("failed to save %s: %w", dest, err)
	}

	f.logger.WithFields(logrus.Fields{"path": dest, "bytes": n}).Debug("Compose file saved")
	return dest, nil
}

// MaterializeAll replaces every URL in refs by its downloaded path
func (f *Fetcher) MaterializeAll(ctx context.Context, refs []string) ([]string, error) {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		local, err := f.Materialize(ctx, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, local)
	}
	return out, nil
}

// leveledLogger lets retryablehttp report through logrus
type leveledLogger struct {
	logger logrus.FieldLogger
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Warn(msg)
}
