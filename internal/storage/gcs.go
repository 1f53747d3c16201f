package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

// GCSStore uploads objects into a bucket with the service account used for
// the bookings spreadsheet.
type GCSStore struct {
	service *gcs.Service
	bucket  string
	baseURL string
}

func NewGCSStore(ctx context.Context, credentialsFile, bucket, baseURL string) (*GCSStore, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, gcs.DevstorageReadWriteScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := gcs.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Storage service: %w", err)
	}
	return newGCSStore(srv, bucket, baseURL)
}

func newGCSStore(srv *gcs.Service, bucket, baseURL string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStore{service: srv, bucket: bucket, baseURL: baseURL}, nil
}

func (s *GCSStore) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if name == "" {
		return "", errBadName
	}
	obj := &gcs.Object{
		Name:         name,
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	}
	_, err := s.service.Objects.Insert(s.bucket, obj).
		Media(r, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("gcs insert %s: %w", name, err)
	}
	return joinURL(s.baseURL, name), nil
}
