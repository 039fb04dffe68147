package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// NewFirebaseStorageService builds a Cloud Storage JSON API client for the
// Firebase bucket. Application default credentials are used when no
// credentials file is configured.
func NewFirebaseStorageService(cfg *AppConfig) (*storage.Service, error) {
	if cfg.FirebaseBucket == "" {
		return nil, errors.New("FIREBASE_BUCKET is not set")
	}

	ctx := context.Background()

	var creds *google.Credentials
	if cfg.FirebaseCredentialsFile != "" {
		data, err := os.ReadFile(cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read firebase credentials: %w", err)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, storage.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("parse firebase credentials: %w", err)
		}
	} else {
		var err error
		creds, err = google.FindDefaultCredentials(ctx, storage.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("find default credentials: %w", err)
		}
	}

	return storage.NewService(ctx, option.WithCredentials(creds))
}
