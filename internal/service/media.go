package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"lms_backend/internal/domain"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/logger"
)

// MediaService turns raw attachment bytes into a stable URL plus a detected
// message kind (image, video or audio).
type MediaService interface {
	Upload(ctx context.Context, filename string, data []byte) (url string, kind string, err error)
}

type mediaService struct {
	uploadDir string
	baseURL   string
	maxBytes  int64
	log       logger.Logger
}

func NewMediaService(uploadDir, baseURL string, maxBytes int64, log logger.Logger) MediaService {
	return &mediaService{
		uploadDir: uploadDir,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxBytes:  maxBytes,
		log:       log,
	}
}

func (s *mediaService) Upload(_ context.Context, filename string, data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("empty attachment: %w", apperr.ErrBadRequest)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", "", fmt.Errorf("attachment exceeds %d bytes: %w", s.maxBytes, apperr.ErrBadRequest)
	}

	mtype := mimetype.Detect(data)
	kind := kindFromMIME(mtype.String())

	name := uuid.New().String() + safeExt(mtype.Extension(), filename)
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Error("failed to store attachment", "error", err, "path", path)
		return "", "", fmt.Errorf("store attachment: %w", err)
	}

	return s.baseURL + "/" + name, kind, nil
}

// kindFromMIME maps a detected MIME type to a message content kind. Anything
// that is not audio or image is treated as video, matching how attachments
// are classified on send.
func kindFromMIME(mime string) string {
	switch {
	case strings.HasPrefix(mime, "audio/"):
		return domain.MessageTypeAudio
	case strings.HasPrefix(mime, "image/"):
		return domain.MessageTypeImage
	default:
		return domain.MessageTypeVideo
	}
}

func safeExt(detected, filename string) string {
	if detected != "" {
		return detected
	}
	return filepath.Ext(filename)
}
