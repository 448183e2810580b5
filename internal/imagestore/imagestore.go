// Copyright 2025 James Ross
// Package imagestore implements the Image pipeline's STORE_IMAGE/FETCH_IMAGE
// backing store (SPEC_FULL.md's supplemented Image pipeline): an S3-backed
// object store via aws-sdk-go, grounded on the teacher's
// internal/long-term-archives S3 exporter, with a local-disk adapter for
// dev/test so the pipeline never has to special-case "no bucket configured".
package imagestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
)

// Object is a stored image's identity and size, as recorded on the note.
type Object struct {
	Key        string
	Bytes      int64
	StoredAt   time.Time
	ContentMD5 string
}

// Store is the contract STORE_IMAGE and FETCH_IMAGE depend on. Both the S3
// backend and the local-disk fallback implement it.
type Store interface {
	Put(ctx context.Context, noteID string, data []byte, contentType string) (Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Config configures the S3-backed Store. Mirrors the teacher's S3Config
// shape (bucket, region, optional endpoint for MinIO/LocalStack, optional
// static credentials, key prefix).
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	KeyPrefix       string
}

// S3Store implements Store against an S3-compatible bucket.
type S3Store struct {
	cfg      Config
	client   *s3.S3
	uploader *s3manager.Uploader
	logger   *zap.Logger
}

// NewS3Store opens an AWS session and verifies bucket access, exactly as
// the teacher's S3Exporter.initAWS does.
func NewS3Store(cfg Config, logger *zap.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("imagestore: bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	store := &S3Store{
		cfg:      cfg,
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		logger:   logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := store.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("access bucket %s: %w", cfg.Bucket, err)
	}

	logger.Info("imagestore initialized",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region))

	return store, nil
}

// Put uploads data under a content-addressed key so repeated fetches of the
// same source image dedupe to one object.
func (s *S3Store) Put(ctx context.Context, noteID string, data []byte, contentType string) (Object, error) {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	key := filepath.Join(s.cfg.KeyPrefix, noteID, digest)

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]*string{
			"note-id": aws.String(noteID),
		},
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload image: %w", err)
	}

	s.logger.Info("image stored",
		zap.String("note_id", noteID),
		zap.String("key", key),
		zap.Int("bytes", len(data)))

	return Object{Key: key, Bytes: int64(len(data)), StoredAt: time.Now().UTC(), ContentMD5: digest}, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get image %s: %w", key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	return nil
}

// LocalStore implements Store against a local directory. Used when no S3
// bucket is configured (dev/test), so the Image pipeline never has to
// special-case a missing backend.
type LocalStore struct {
	dir    string
	logger *zap.Logger
}

func NewLocalStore(dir string, logger *zap.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &LocalStore{dir: dir, logger: logger}, nil
}

func (l *LocalStore) Put(ctx context.Context, noteID string, data []byte, contentType string) (Object, error) {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	key := filepath.Join(noteID, digest)
	path := filepath.Join(l.dir, key)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Object{}, fmt.Errorf("create image note dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("write image: %w", err)
	}

	l.logger.Info("image stored locally",
		zap.String("note_id", noteID),
		zap.String("key", key),
		zap.Int("bytes", len(data)))

	return Object{Key: key, Bytes: int64(len(data)), StoredAt: time.Now().UTC(), ContentMD5: digest}, nil
}

func (l *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, key))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", key, err)
	}
	return data, nil
}

func (l *LocalStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(filepath.Join(l.dir, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	return nil
}
