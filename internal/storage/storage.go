package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"
	"strings"

	"todoshi/internal/domain"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrDisabled is returned when object storage is not configured.
var ErrDisabled = errors.New("object storage not configured")

// ObjectStore holds avatars, project banners, SRS documents and chat
// attachments. PublicID is the object key.
type ObjectStore interface {
	Upload(ctx context.Context, folder string, file *multipart.FileHeader) (domain.FileRef, error)
	Delete(ctx context.Context, publicID string) error
}

// Config holds MinIO connection settings.
type Config struct {
	Endpoint        string // e.g. "minio:9000"
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	PublicURL       string // optional, defaults to the endpoint
}

// MinioStore stores objects in a single bucket, one folder per kind.
type MinioStore struct {
	mc        *minio.Client
	bucket    string
	publicURL string
	enabled   bool
}

// NewMinioStore creates a storage client. An empty endpoint yields a disabled
// store whose operations return ErrDisabled.
func NewMinioStore(cfg Config) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return &MinioStore{enabled: false}, nil
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	return &MinioStore{
		mc:        mc,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		enabled:   true,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist (idempotent).
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	if !s.enabled {
		return ErrDisabled
	}
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
}

func (s *MinioStore) Upload(ctx context.Context, folder string, file *multipart.FileHeader) (domain.FileRef, error) {
	if !s.enabled {
		return domain.FileRef{}, ErrDisabled
	}

	src, err := file.Open()
	if err != nil {
		return domain.FileRef{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	key := ObjectKey(folder, file.Filename)
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := s.mc.PutObject(ctx, s.bucket, key, src, file.Size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return domain.FileRef{}, fmt.Errorf("put object %s: %w", key, err)
	}

	return domain.FileRef{
		PublicID: key,
		URL:      s.publicURL + "/" + s.bucket + "/" + key,
	}, nil
}

func (s *MinioStore) Delete(ctx context.Context, publicID string) error {
	if !s.enabled {
		return ErrDisabled
	}
	if publicID == "" {
		return nil
	}
	return s.mc.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{})
}

// Enabled reports whether the store is configured.
func (s *MinioStore) Enabled() bool {
	return s.enabled
}

// ObjectKey builds a collision free key under folder keeping the original
// file extension.
func ObjectKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(folder, uuid.New().String()+ext)
}
