package adapter

import (
	"EnclosureAPI/internal/config"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrForeignBucket = errors.New("bucket is not the configured media bucket")

// StorageAdapter is the S3 (or S3-compatible) content store.
type StorageAdapter struct {
	client       *s3.Client
	bucket       string
	region       string
	endpoint     string
	publicDomain string
}

func NewStorageAdapter(cfg *config.AppConfig, s3Client *s3.Client) *StorageAdapter {
	return &StorageAdapter{
		client:       s3Client,
		bucket:       cfg.S3Bucket,
		region:       cfg.S3Region,
		endpoint:     strings.TrimRight(cfg.S3Endpoint, "/"),
		publicDomain: strings.TrimRight(cfg.S3PublicDomain, "/"),
	}
}

func (s *StorageAdapter) Put(ctx context.Context, objectPath, contentType string, body io.Reader) error {
	if s.client == nil {
		return errors.New("s3 client is not initialized")
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(objectPath)),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	return err
}

// ResolveURL returns the public URL of an uploaded object after confirming
// it exists.
func (s *StorageAdapter) ResolveURL(ctx context.Context, objectPath string) (string, error) {
	if s.client == nil {
		return "", errors.New("s3 client is not initialized")
	}

	key := objectKey(objectPath)
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return "", err
	}

	return s.PublicURL(key), nil
}

func (s *StorageAdapter) PublicURL(key string) string {
	escaped := escapeKey(key)
	switch {
	case s.publicDomain != "":
		return fmt.Sprintf("%s/%s", s.publicDomain, escaped)
	case s.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, escaped)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
	}
}

// Fetch streams an object. An empty bucket means the configured one; any
// other bucket is refused.
func (s *StorageAdapter) Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	if bucket == "" {
		bucket = s.bucket
	}
	if bucket != s.bucket {
		return nil, 0, fmt.Errorf("%w: %s", ErrForeignBucket, bucket)
	}
	if s.client == nil {
		return nil, 0, errors.New("s3 client is not initialized")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err != nil {
		return nil, 0, err
	}

	return out.Body, aws.ToInt64(out.ContentLength), nil
}

func (s *StorageAdapter) Delete(ctx context.Context, objectPath string) error {
	if s.client == nil {
		return errors.New("s3 client is not initialized")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(objectPath)),
	})
	return err
}

func objectKey(p string) string {
	return strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
