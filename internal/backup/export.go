package backup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/yourlabs/compoctl/internal/archive"
	"github.com/yourlabs/compoctl/internal/crypto"
	"github.com/yourlabs/compoctl/internal/models"
	"github.com/yourlabs/compoctl/internal/storage"
)

// PasswordFunc supplies the archive password when it is needed
type PasswordFunc func() (string, error)

// Export packs the backup directory and stores it as a new version of
// project. A non-empty password encrypts the archive.
func (c *Client) Export(ctx context.Context, catalog *storage.Catalog, project string, result *BackupResult, password string) (models.ArchiveMetadata, error) {
	tmp, err := afero.TempFile(c.fs, "", "compoctl-archive-*")
	if err != nil {
		return models.ArchiveMetadata{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = c.fs.Remove(tmp.Name())
	}()

	if err := c.pack(tmp, password); err != nil {
		return models.ArchiveMetadata{}, err
	}

	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return models.ArchiveMetadata{}, fmt.Errorf("failed to size archive: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return models.ArchiveMetadata{}, fmt.Errorf("failed to rewind archive: %w", err)
	}

	upload := c.progress.Reader(tmp, size, "Uploading archive")
	defer upload.Close()

	metadata := models.ArchiveMetadata{
		Size:        size,
		Encrypted:   password != "",
		Description: fmt.Sprintf("compoctl backup of %s", project),
	}
	if result != nil {
		metadata.Images = result.Images
	}

	stored, err := catalog.Put(ctx, project, &storage.Archive{Metadata: metadata, Data: upload})
	if err != nil {
		return models.ArchiveMetadata{}, err
	}

	c.logger.WithFields(logrus.Fields{
		"archive":   stored.ID,
		"bytes":     stored.Size,
		"encrypted": stored.Encrypted,
	}).Info("Archive stored")
	return stored, nil
}

func (c *Client) pack(w io.Writer, password string) error {
	c.logger.WithField("dir", c.backupDir()).Info("Packing backup directory")

	if password == "" {
		if err := archive.Pack(c.fs, c.backupDir(), w); err != nil {
			return fmt.Errorf("failed to pack %s: %w", c.backupDir(), err)
		}
		return nil
	}

	ew, err := crypto.NewEncryptWriter(w, password)
	if err != nil {
		return err
	}
	if err := archive.Pack(c.fs, c.backupDir(), ew); err != nil {
		return fmt.Errorf("failed to pack %s: %w", c.backupDir(), err)
	}
	return ew.Close()
}

// Import fetches the archive ref names and unpacks it into the backup
// directory, overwriting files it contains. password is only called for
// encrypted archives.
func (c *Client) Import(ctx context.Context, catalog *storage.Catalog, ref string, password PasswordFunc) (models.ArchiveMetadata, error) {
	stored, err := catalog.Get(ctx, ref)
	if err != nil {
		return models.ArchiveMetadata{}, models.WrapError(models.KindRestoreUnavailable, err, "cannot fetch archive %s", ref)
	}
	defer stored.Close()

	c.logger.WithField("archive", stored.ID).Info("Unpacking archive")

	br := bufio.NewReader(c.progress.Reader(stored.Data, stored.Metadata.Size, "Downloading archive"))
	head, _ := br.Peek(len(crypto.Magic))

	var data io.Reader = br
	if crypto.IsEncrypted(head) {
		if password == nil {
			return stored.Metadata, models.NewError(models.KindRestoreUnavailable, 0, "archive %s is encrypted and no password was given", stored.ID)
		}
		pw, err := password()
		if err != nil {
			return stored.Metadata, models.WrapError(models.KindRestoreUnavailable, err, "cannot read archive password")
		}
		dr, err := crypto.NewDecryptReader(br, pw)
		if err != nil {
			return stored.Metadata, models.WrapError(models.KindRestoreUnavailable, err, "cannot decrypt archive %s", stored.ID)
		}
		data = dr
	}

	if err := c.install(data); err != nil {
		return stored.Metadata, models.WrapError(models.KindRestoreUnavailable, err, "cannot unpack archive %s", stored.ID)
	}
	return stored.Metadata, nil
}

// install unpacks into a staging directory next to the backup directory
// and only moves the files into place once the whole stream was read and,
// when encrypted, its final frame authenticated. A broken archive leaves
// the backup directory as it was.
func (c *Client) install(data io.Reader) error {
	dir := c.backupDir()
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	staging, err := afero.TempDir(c.fs, filepath.Dir(dir), ".compoctl-import-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = c.fs.RemoveAll(staging) }()

	if err := archive.Unpack(c.fs, data, staging); err != nil {
		return err
	}
	if _, err := io.Copy(io.Discard, data); err != nil {
		return err
	}
	return archive.Merge(c.fs, staging, dir)
}
