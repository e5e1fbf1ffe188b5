package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spf13/afero"

	"github.com/yourlabs/compoctl/internal/models"
)

type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
	// spool buffers streams that cannot be rewound for signing
	spool afero.Fs
}

func NewS3Storage(ctx context.Context, fs afero.Fs, cfg *S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required for S3 storage")
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOptions []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Storage{
		client: s3.NewFromConfig(awsConfig, clientOptions...),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		spool:  fs,
	}, nil
}

func (s *S3Storage) key(id, suffix string) string {
	return path.Join(s.prefix, id+suffix)
}

// seekable returns r as an io.ReadSeeker, copying it to a temporary file
// when it cannot seek
func (s *S3Storage) seekable(r io.Reader) (io.ReadSeeker, func(), error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, func() {}, nil
	}

	tmp, err := afero.TempFile(s.spool, "", "compoctl-upload-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() {
		_ = tmp.Close()
		_ = s.spool.Remove(tmp.Name())
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to buffer archive data: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to rewind temp file: %w", err)
	}
	return tmp, cleanup, nil
}

func (s *S3Storage) Store(ctx context.Context, archive *Archive) error {
	body, cleanup, err := s.seekable(archive.Data)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(archive.ID, dataSuffix)),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive data: %w", err)
	}

	metadataBytes, err := json.Marshal(archive.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(archive.ID, metadataSuffix)),
		Body:        bytes.NewReader(metadataBytes),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload metadata: %w", err)
	}

	return nil
}

func (s *S3Storage) readMetadata(ctx context.Context, key string) (models.ArchiveMetadata, error) {
	var metadata models.ArchiveMetadata

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return metadata, err
	}
	defer result.Body.Close()

	if err := json.NewDecoder(result.Body).Decode(&metadata); err != nil {
		return metadata, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return metadata, nil
}

func (s *S3Storage) Retrieve(ctx context.Context, id string) (*Archive, error) {
	metadata, err := s.readMetadata(ctx, s.key(id, metadataSuffix))
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to retrieve metadata: %w", err)
	}

	dataResult, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id, dataSuffix)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve archive data: %w", err)
	}

	return &Archive{ID: id, Metadata: metadata, Data: dataResult.Body}, nil
}

func (s *S3Storage) List(ctx context.Context) ([]models.ArchiveMetadata, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	var archives []models.ArchiveMetadata
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range output.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, metadataSuffix) {
				continue
			}
			metadata, err := s.readMetadata(ctx, key)
			if err != nil {
				continue
			}
			archives = append(archives, metadata)
		}
	}

	return archives, nil
}

func (s *S3Storage) Delete(ctx context.Context, id string) error {
	for _, suffix := range []string{dataSuffix, metadataSuffix} {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(id, suffix)),
		})
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", s.key(id, suffix), err)
		}
	}
	return nil
}

func (s *S3Storage) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id, metadataSuffix)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check archive existence: %w", err)
	}
	return true, nil
}

func (s *S3Storage) Close() error {
	return nil
}
