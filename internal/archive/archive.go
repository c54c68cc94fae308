// Package archive uploads synthesized replies to S3-compatible storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"time"

	"github.com/Vovarama1992/kisan_voice/internal/audio"
	"github.com/Vovarama1992/kisan_voice/internal/pipeline"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Insecure  bool
}

// Uploader is the subset of *minio.Client used here.
type Uploader interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Archive struct {
	client Uploader
	bucket string
	host   string
	logger *zap.Logger
}

// New connects and checks that the bucket exists.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: !cfg.Insecure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	scheme := "https"
	if cfg.Insecure {
		scheme = "http"
	}
	return NewWithClient(client, cfg.Bucket, fmt.Sprintf("%s://%s", scheme, cfg.Endpoint), logger), nil
}

func NewWithClient(client Uploader, bucket, host string, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{
		client: client,
		bucket: bucket,
		host:   host,
		logger: logger.With(zap.String("component", "archive")),
	}
}

// ObjectKey is <source>/<date>/<run id><ext>.
func ObjectKey(run *pipeline.Run, reply *audio.File) string {
	ext := filepath.Ext(reply.Path)
	if ext == "" {
		ext = ".mp3"
	}
	return fmt.Sprintf("%s/%s/%s%s", run.Source, run.StartedAt.Format("2006-01-02"), run.ID, ext)
}

// Archive implements pipeline.Archiver.
func (a *Archive) Archive(ctx context.Context, run *pipeline.Run, reply *audio.File) error {
	f, err := reply.Open()
	if err != nil {
		return fmt.Errorf("open reply: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat reply: %w", err)
	}

	key := ObjectKey(run, reply)
	_, err = a.client.PutObject(ctx, a.bucket, key, f, info.Size(), minio.PutObjectOptions{
		ContentType: reply.MediaType,
		UserMetadata: map[string]string{
			"run-id":      run.ID,
			"language":    run.Language(),
			"uploaded-at": time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	a.logger.Info("reply archived", zap.String("run_id", run.ID), zap.String("url", a.URL(key)))
	return nil
}

func (a *Archive) URL(key string) string {
	escapedKey := url.PathEscape(filepath.ToSlash(key))
	return fmt.Sprintf("%s/%s/%s", a.host, a.bucket, escapedKey)
}
