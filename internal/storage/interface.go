package storage

import (
	"context"
	"errors"
	"io"

	"github.com/yourlabs/compoctl/internal/models"
)

var ErrNotFound = errors.New("archive not found")

// Archive is one stored copy of a project's backup directory
type Archive struct {
	ID       string
	Metadata models.ArchiveMetadata
	Data     io.Reader
}

// Close releases the data stream of a retrieved archive
func (a *Archive) Close() error {
	if c, ok := a.Data.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type Backend interface {
	Store(ctx context.Context, archive *Archive) error
	Retrieve(ctx context.Context, id string) (*Archive, error)
	List(ctx context.Context) ([]models.ArchiveMetadata, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	Close() error
}

type Config struct {
	Type  string
	Local *LocalConfig
	GCS   *GCSConfig
	S3    *S3Config
}

type LocalConfig struct {
	BasePath string
}

type GCSConfig struct {
	Bucket      string
	ProjectID   string
	Credentials string
	Prefix      string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

const (
	dataSuffix     = ".tar.gz"
	metadataSuffix = ".json"
)
