package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/yourlabs/compoctl/internal/models"
)

type LocalStorage struct {
	fs       afero.Fs
	basePath string
}

func NewLocalStorage(fs afero.Fs, config *LocalConfig) (*LocalStorage, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path is required for local storage")
	}

	if err := fs.MkdirAll(config.BasePath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{fs: fs, basePath: config.BasePath}, nil
}

func (l *LocalStorage) path(id, suffix string) string {
	return filepath.Join(l.basePath, id+suffix)
}

func (l *LocalStorage) Store(ctx context.Context, archive *Archive) error {
	dataPath := l.path(archive.ID, dataSuffix)
	metaPath := l.path(archive.ID, metadataSuffix)

	if err := l.write(dataPath, func(w io.Writer) error {
		_, err := io.Copy(w, archive.Data)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write archive data: %w", err)
	}

	if err := l.write(metaPath, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(archive.Metadata)
	}); err != nil {
		_ = l.fs.Remove(dataPath)
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// write fills path through a temporary sibling so readers never see a
// partial file
func (l *LocalStorage) write(path string, fill func(io.Writer) error) error {
	tmp := path + ".part"
	f, err := l.fs.Create(tmp)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		_ = l.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = l.fs.Remove(tmp)
		return err
	}
	return l.fs.Rename(tmp, path)
}

func (l *LocalStorage) readMetadata(path string) (models.ArchiveMetadata, error) {
	var metadata models.ArchiveMetadata
	f, err := l.fs.Open(path)
	if err != nil {
		return metadata, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&metadata); err != nil {
		return metadata, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return metadata, nil
}

func (l *LocalStorage) Retrieve(ctx context.Context, id string) (*Archive, error) {
	metadata, err := l.readMetadata(l.path(id, metadataSuffix))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	data, err := l.fs.Open(l.path(id, dataSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive data: %w", err)
	}

	return &Archive{ID: id, Metadata: metadata, Data: data}, nil
}

func (l *LocalStorage) List(ctx context.Context) ([]models.ArchiveMetadata, error) {
	entries, err := afero.ReadDir(l.fs, l.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var archives []models.ArchiveMetadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), metadataSuffix) {
			continue
		}
		metadata, err := l.readMetadata(filepath.Join(l.basePath, entry.Name()))
		if err != nil {
			continue
		}
		archives = append(archives, metadata)
	}

	return archives, nil
}

func (l *LocalStorage) Delete(ctx context.Context, id string) error {
	if err := l.fs.Remove(l.path(id, dataSuffix)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove archive data: %w", err)
	}
	if err := l.fs.Remove(l.path(id, metadataSuffix)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove metadata: %w", err)
	}
	return nil
}

func (l *LocalStorage) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := afero.Exists(l.fs, l.path(id, metadataSuffix))
	if err != nil {
		return false, fmt.Errorf("failed to check archive existence: %w", err)
	}
	return ok, nil
}

func (l *LocalStorage) Close() error {
	return nil
}
