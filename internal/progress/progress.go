package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/cheggaaa/pb/v3"
)

const spinnerFrames = `"⠋" "⠙" "⠹" "⠸" "⠼" "⠴" "⠦" "⠧" "⠇" "⠏"`

// Factory hands out progress indicators drawn on a single output. A quiet
// factory hands out indicators that draw nothing.
type Factory struct {
	out   io.Writer
	quiet bool
}

func NewFactory(out io.Writer, quiet bool) *Factory {
	return &Factory{out: out, quiet: quiet}
}

func barTemplate(description string) string {
	return fmt.Sprintf(`{{ %q }} {{ bar . "[" "=" ">" " " "]"}} {{speed . }} {{percent . }} {{rtime . " ETA"}}`, description)
}

func spinnerTemplate(description string) string {
	return fmt.Sprintf(`{{ %q }} {{ cycle . %s }}`, description, spinnerFrames)
}

func (f *Factory) bar(size int64, description string) *pb.ProgressBar {
	bar := pb.New64(size)
	bar.Set(pb.SIBytesPrefix, true)
	bar.SetTemplateString(barTemplate(description))
	bar.SetRefreshRate(100 * time.Millisecond)
	bar.SetWriter(f.out)
	return bar.Start()
}

// Writer wraps an io.Writer with a progress bar
type Writer struct {
	writer io.Writer
	bar    *pb.ProgressBar
}

// Writer counts bytes written to w against size. An unknown size (<= 0) or
// a quiet factory passes writes straight through.
func (f *Factory) Writer(w io.Writer, size int64, description string) *Writer {
	if f.quiet || size <= 0 {
		return &Writer{writer: w}
	}
	bar := f.bar(size, description)
	return &Writer{writer: bar.NewProxyWriter(w), bar: bar}
}

func (pw *Writer) Write(p []byte) (int, error) {
	return pw.writer.Write(p)
}

// Close finishes the progress bar
func (pw *Writer) Close() error {
	if pw.bar != nil {
		pw.bar.Finish()
	}
	return nil
}

// Reader wraps an io.Reader with a progress bar
type Reader struct {
	reader io.Reader
	bar    *pb.ProgressBar
}

func (f *Factory) Reader(r io.Reader, size int64, description string) *Reader {
	if f.quiet || size <= 0 {
		return &Reader{reader: r}
	}
	bar := f.bar(size, description)
	return &Reader{reader: bar.NewProxyReader(r), bar: bar}
}

func (pr *Reader) Read(p []byte) (int, error) {
	return pr.reader.Read(p)
}

func (pr *Reader) Close() error {
	if pr.bar != nil {
		pr.bar.Finish()
	}
	return nil
}

// Spinner shows activity for operations without a known size
type Spinner struct {
	spinner *pb.ProgressBar
}

func (f *Factory) Spinner(description string) *Spinner {
	if f.quiet {
		return &Spinner{}
	}
	spinner := pb.New(0)
	spinner.SetTemplateString(spinnerTemplate(description))
	spinner.SetRefreshRate(100 * time.Millisecond)
	spinner.SetWriter(f.out)
	return &Spinner{spinner: spinner.Start()}
}

// Update replaces the spinner description
func (s *Spinner) Update(description string) {
	if s.spinner != nil {
		s.spinner.SetTemplateString(spinnerTemplate(description))
	}
}

func (s *Spinner) Stop() {
	if s.spinner != nil {
		s.spinner.Finish()
	}
}
