package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go-api/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Blob stores downloaded documents and returns the stored location.
type Blob interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// New picks the backend named by cfg.StorageBackend.
func New(cfg *config.Config) (Blob, error) {
	switch cfg.StorageBackend {
	case "", "fs":
		return NewFS(cfg.StorageDir), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
		sess, err := session.NewSessionWithOptions(session.Options{
			Config:            aws.Config{Region: aws.String(cfg.AWSRegion)},
			SharedConfigState: session.SharedConfigEnable,
		})
		if err != nil {
			return nil, fmt.Errorf("aws session: %w", err)
		}
		return NewS3(s3manager.NewUploader(sess), cfg.S3Bucket), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// cleanKey turns a caller supplied key into a relative slash path that
// cannot climb out of the storage root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("empty storage key %q", key)
	}
	return k, nil
}

// FS keeps blobs under a local directory.
type FS struct {
	root string
}

func NewFS(root string) *FS {
	return &FS{root: root}
}

func (f *FS) Put(ctx context.Context, key string, body io.Reader, _ string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(f.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	// write then rename so readers never see half a file
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", k, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store %s: %w", k, err)
	}
	return k, nil
}

// Uploader is the part of s3manager.Uploader we use.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3 keeps blobs in a bucket.
type S3 struct {
	uploader Uploader
	bucket   string
}

func NewS3(uploader Uploader, bucket string) *S3 {
	return &S3{uploader: uploader, bucket: bucket}
}

func (s *S3) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	in := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	out, err := s.uploader.UploadWithContext(ctx, in)
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", s.bucket, k, err)
	}
	return out.Location, nil
}
