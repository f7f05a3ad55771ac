// internal/storage/archiver.go

// Package storage archives raw account extracts to S3-compatible object
// storage after ingestion, so a bad run can always be replayed from the
// original files.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/brazaops/stockcast/internal/config"
)

// Archiver stores raw extract files. kind is the extract family ("vendas" or
// "estoque"); the object key embeds the ingestion date and account so a
// given day's inputs stay grouped.
type Archiver interface {
	ArchiveExtract(ctx context.Context, kind, account, path string) error
}

type minioArchiver struct {
	client *minio.Client
	bucket string
}

// NewArchiver builds a minio-backed archiver, or a noop one when no endpoint
// is configured.
func NewArchiver(ctx context.Context, cfg *config.ArchiveConfig) (Archiver, error) {
	if cfg.Endpoint == "" {
		log.Info().Msg("storage: no archive endpoint configured, archiving disabled")
		return noopArchiver{}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check archive bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create archive bucket: %w", err)
		}
		log.Info().Str("bucket", cfg.Bucket).Msg("storage: archive bucket created")
	}

	return &minioArchiver{client: client, bucket: cfg.Bucket}, nil
}

func (a *minioArchiver) ArchiveExtract(ctx context.Context, kind, account, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open extract for archiving: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat extract: %w", err)
	}

	objectKey := fmt.Sprintf("%s/%s/%s/%s",
		kind,
		time.Now().UTC().Format("2006-01-02"),
		account,
		filepath.Base(path),
	)

	_, err = a.client.PutObject(ctx, a.bucket, objectKey, file, stat.Size(), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return fmt.Errorf("failed to archive extract %s: %w", objectKey, err)
	}

	log.Info().Str("object", objectKey).Int64("bytes", stat.Size()).Msg("storage: extract archived")
	return nil
}

type noopArchiver struct{}

func (noopArchiver) ArchiveExtract(context.Context, string, string, string) error { return nil }
