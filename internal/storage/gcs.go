package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yourlabs/compoctl/internal/models"
)

type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStorage(ctx context.Context, config *GCSConfig) (*GCSStorage, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required for GCS storage")
	}

	var opts []option.ClientOption
	if config.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(config.Credentials))
	}
	if config.ProjectID != "" {
		opts = append(opts, option.WithQuotaProject(config.ProjectID))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: config.Bucket,
		prefix: strings.Trim(config.Prefix, "/"),
	}, nil
}

func (g *GCSStorage) object(id, suffix string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(path.Join(g.prefix, id+suffix))
}

func (g *GCSStorage) Store(ctx context.Context, archive *Archive) error {
	w := g.object(archive.ID, dataSuffix).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := io.Copy(w, archive.Data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write archive data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	meta := g.object(archive.ID, metadataSuffix).NewWriter(ctx)
	meta.ContentType = "application/json"
	if err := json.NewEncoder(meta).Encode(archive.Metadata); err != nil {
		_ = meta.Close()
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := meta.Close(); err != nil {
		return fmt.Errorf("failed to close metadata writer: %w", err)
	}

	return nil
}

func (g *GCSStorage) readMetadata(ctx context.Context, obj *storage.ObjectHandle) (models.ArchiveMetadata, error) {
	var metadata models.ArchiveMetadata
	r, err := obj.NewReader(ctx)
	if err != nil {
		return metadata, err
	}
	defer r.Close()

	if err := json.NewDecoder(r).Decode(&metadata); err != nil {
		return metadata, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return metadata, nil
}

func (g *GCSStorage) Retrieve(ctx context.Context, id string) (*Archive, error) {
	metadata, err := g.readMetadata(ctx, g.object(id, metadataSuffix))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	data, err := g.object(id, dataSuffix).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive data: %w", err)
	}

	return &Archive{ID: id, Metadata: metadata, Data: data}, nil
}

func (g *GCSStorage) List(ctx context.Context) ([]models.ArchiveMetadata, error) {
	bucket := g.client.Bucket(g.bucket)

	query := &storage.Query{Delimiter: "/"}
	if g.prefix != "" {
		query.Prefix = g.prefix + "/"
	}

	var archives []models.ArchiveMetadata
	it := bucket.Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if !strings.HasSuffix(attrs.Name, metadataSuffix) {
			continue
		}

		metadata, err := g.readMetadata(ctx, bucket.Object(attrs.Name))
		if err != nil {
			continue
		}
		archives = append(archives, metadata)
	}

	return archives, nil
}

func (g *GCSStorage) Delete(ctx context.Context, id string) error {
	for _, suffix := range []string{dataSuffix, metadataSuffix} {
		if err := g.object(id, suffix).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("failed to delete archive %s: %w", id, err)
		}
	}
	return nil
}

func (g *GCSStorage) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := g.object(id, metadataSuffix).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check archive existence: %w", err)
	}
	return true, nil
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}
