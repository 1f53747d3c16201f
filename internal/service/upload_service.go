package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"arenapanel/internal/access"
	"arenapanel/internal/domain"
	"arenapanel/internal/metrics"
	"arenapanel/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadService stores space pictures and profile photos.
type UploadService struct {
	store    domain.FileStore
	maxBytes int64
	logger   *zerolog.Logger
}

func NewUploadService(store domain.FileStore, maxBytes int64, logger *zerolog.Logger) *UploadService {
	if maxBytes <= 0 || maxBytes > models.MaxUploadBytes {
		maxBytes = models.MaxUploadBytes
	}
	return &UploadService{store: store, maxBytes: maxBytes, logger: logger}
}

// Upload validates an image and hands it to the file store, returning its
// public URL. The content type is sniffed from the bytes, not taken from the
// client.
func (s *UploadService) Upload(ctx context.Context, actor access.Session, filename string, r io.Reader) (string, error) {
	if err := authorize(actor, access.ActionCreate, false); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", &UploadError{Kind: UploadTransport, Err: err}
	}
	if len(data) == 0 {
		return "", &UploadError{Kind: UploadEmpty}
	}
	if int64(len(data)) > s.maxBytes {
		return "", &UploadError{Kind: UploadTooLarge}
	}

	contentType, _, _ := strings.Cut(http.DetectContentType(data), ";")
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", &UploadError{Kind: UploadUnsupportedType}
	}

	if err := ctx.Err(); err != nil {
		return "", &UploadError{Kind: UploadTransport, Err: err}
	}

	name := uuid.NewString() + ext
	url, err := s.store.Upload(ctx, name, contentType, bytes.NewReader(data))
	if err != nil {
		s.logger.Error().Err(err).Str("object", name).Msg("upload failed")
		return "", &UploadError{Kind: UploadTransport, Err: err}
	}

	metrics.ObserveUpload(int64(len(data)))
	s.logger.Info().
		Str("object", name).
		Str("original_name", filename).
		Str("content_type", contentType).
		Int("size", len(data)).
		Int64("user_id", actor.UserID).
		Msg("file uploaded")

	return url, nil
}
