package adapter

import (
	"EnclosureAPI/internal/config"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	storage "google.golang.org/api/storage/v1"
)

const firebaseTokenMetadataKey = "firebaseStorageDownloadTokens"

// FirebaseStorageAdapter stores media in the Firebase bucket and hands out
// token-based download URLs the mobile clients already understand.
type FirebaseStorageAdapter struct {
	svc    *storage.Service
	bucket string
}

func NewFirebaseStorageAdapter(cfg *config.AppConfig, svc *storage.Service) *FirebaseStorageAdapter {
	return &FirebaseStorageAdapter{
		svc:    svc,
		bucket: cfg.FirebaseBucket,
	}
}

func (f *FirebaseStorageAdapter) Put(ctx context.Context, objectPath, contentType string, body io.Reader) error {
	if f.svc == nil {
		return errors.New("firebase storage is not initialized")
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj := &storage.Object{
		Name:        objectKey(objectPath),
		ContentType: contentType,
		Metadata:    map[string]string{firebaseTokenMetadataKey: uuid.NewString()},
	}

	_, err := f.svc.Objects.Insert(f.bucket, obj).
		Media(body, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	return err
}

// ResolveURL returns "" when the object has no download token.
func (f *FirebaseStorageAdapter) ResolveURL(ctx context.Context, objectPath string) (string, error) {
	if f.svc == nil {
		return "", errors.New("firebase storage is not initialized")
	}

	name := objectKey(objectPath)
	obj, err := f.svc.Objects.Get(f.bucket, name).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	token := obj.Metadata[firebaseTokenMetadataKey]
	if token == "" {
		return "", nil
	}

	return f.downloadURL(name, token), nil
}

func (f *FirebaseStorageAdapter) downloadURL(name, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		f.bucket, url.PathEscape(name), url.QueryEscape(token))
}

func (f *FirebaseStorageAdapter) Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	if bucket == "" {
		bucket = f.bucket
	}
	if bucket != f.bucket {
		return nil, 0, fmt.Errorf("%w: %s", ErrForeignBucket, bucket)
	}
	if f.svc == nil {
		return nil, 0, errors.New("firebase storage is not initialized")
	}

	resp, err := f.svc.Objects.Get(bucket, objectKey(key)).Context(ctx).Download()
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("unexpected status %d fetching gs://%s/%s", resp.StatusCode, bucket, key)
	}

	return resp.Body, resp.ContentLength, nil
}

func (f *FirebaseStorageAdapter) Delete(ctx context.Context, objectPath string) error {
	if f.svc == nil {
		return errors.New("firebase storage is not initialized")
	}
	return f.svc.Objects.Delete(f.bucket, objectKey(objectPath)).Context(ctx).Do()
}
