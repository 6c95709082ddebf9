package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/gitcas/gitcas/pkg/errors"
)

// Config represents S3 store configuration.
type Config struct {
	Region   string `yaml:"region"`
	Bucket   string `yaml:"bucket"`
	Endpoint string `yaml:"endpoint"`
	// Prefix is prepended to every blob key, so one bucket can host
	// several stores.
	Prefix         string `yaml:"prefix"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	MaxRetries     int    `yaml:"max_retries"`
}

// NewDefaultConfig returns an S3 configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Region:     "us-east-1",
		Prefix:     "blobs",
		MaxRetries: 3,
	}
}

// Store is an S3-backed BlobStore.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// New creates a Store against the configured bucket. Credentials and
// region come from the standard AWS configuration chain, overridden by
// cfg where set.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "bucket name cannot be empty").In("s3")
	}
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(cfg.MaxRetries),
	)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoad, "failed to load AWS config", err).In("s3")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 blob store initialized",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"prefix", cfg.Prefix)

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Put uploads data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return errors.New(errors.ErrCodeInvalidInput, "empty blob key").In("s3").During("put")
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return s.translateError(err, "put", key)
	}

	s.logger.Debug("blob uploaded", "key", key, "size", len(data))
	return nil
}

// Get downloads the blob stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}

	result, err := s.client.GetObject(ctx, input)
	if err != nil {
		return nil, s.translateError(err, "get", key)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageRead, "failed to read object body", err).
			In("s3").During("get").WithDetail("key", key)
	}
	return data, nil
}

// Delete removes key; deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}

	if _, err := s.client.DeleteObject(ctx, input); err != nil {
		translated := s.translateError(err, "delete", key)
		if e, ok := translated.(*errors.EngineError); ok && e.Code == errors.ErrCodeBlobNotFound {
			return nil
		}
		return translated
	}
	return nil
}

// Exists reports whether key is present in the bucket.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	}

	if _, err := s.client.HeadObject(ctx, input); err != nil {
		translated := s.translateError(err, "exists", key)
		if e, ok := translated.(*errors.EngineError); ok && e.Code == errors.ErrCodeBlobNotFound {
			return false, nil
		}
		return false, translated
	}
	return true, nil
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// translateError converts SDK failures into engine errors. Missing
// objects become BLOB_NOT_FOUND; everything else maps onto the storage
// read/write codes by operation.
func (s *Store) translateError(err error, operation, key string) error {
	if isNotFound(err) {
		return errors.Newf(errors.ErrCodeBlobNotFound, "no blob for key %q", key).
			In("s3").During(operation)
	}

	code := errors.ErrCodeStorageRead
	if operation == "put" || operation == "delete" {
		code = errors.ErrCodeStorageWrite
	}
	return errors.Wrap(code, "S3 request failed", err).
		In("s3").During(operation).WithDetail("key", key)
}

func isNotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	if stderrors.As(err, &noSuchKey) {
		return true
	}
	var notFound *s3types.NotFound
	if stderrors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
