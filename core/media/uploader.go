package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"github.com/apex/log"
	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cryout/config"
)

// Uploader stores one evidence attachment and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
}

// MinioUploader writes evidence objects to an S3-compatible host. Objects are
// named by fresh UUIDs so an attachment URL never leaks the victim's chosen
// filename.
type MinioUploader struct {
	client *minio.Client
	cfg    config.MediaConfig
	logger log.Interface
}

func NewMinioUploader(cfg config.MediaConfig, logger log.Interface) (*MinioUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("media client: %w", err)
	}
	return &MinioUploader{client: client, cfg: cfg, logger: logger}, nil
}

// EnsureBucket creates the evidence bucket when it does not exist yet.
func (u *MinioUploader) EnsureBucket(ctx context.Context) error {
	ok, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if ok {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	u.logger.WithField("bucket", u.cfg.Bucket).Info("created media bucket")
	return nil
}

func (u *MinioUploader) Upload(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error) {
	ext := strings.ToLower(path.Ext(name))
	object := u.cfg.Folder + "/" + uuid.Must(uuid.NewV4()).String() + ext
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := u.client.PutObject(ctx, u.cfg.Bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	base := strings.TrimRight(u.cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if u.cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + u.cfg.Endpoint
	}
	return base + "/" + u.cfg.Bucket + "/" + object, nil
}

// UploadAll stores every part of a multipart upload, failing fast on the
// first error so a submission never ends up with half its evidence.
func UploadAll(ctx context.Context, u Uploader, files []*multipart.FileHeader) ([]string, error) {
	if u == nil && len(files) > 0 {
		return nil, fmt.Errorf("media uploads are not configured")
	}
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		url, err := u.Upload(ctx, fh.Filename, fh.Header.Get("Content-Type"), f, fh.Size)
		f.Close()
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}
