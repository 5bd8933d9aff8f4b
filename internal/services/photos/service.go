package photos

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var ErrValidation = errors.New("validation error")

const signedURLTTL = 5 * time.Minute

type PhotoKeySaver interface {
	SavePhotoKey(ctx context.Context, userID int64, photoKey string, at time.Time) error
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutPhoto(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Service manages the single profile photo each user has. The photo
// itself lives in object storage; only the object key is stored on the
// user row.
type Service struct {
	users   PhotoKeySaver
	storage ObjectStorage
	now     func() time.Time
}

type Photo struct {
	URL       string
	UpdatedAt time.Time
}

func NewService(users PhotoKeySaver, storage ObjectStorage) *Service {
	return &Service{
		users:   users,
		storage: storage,
		now:     time.Now,
	}
}

// UploadProfilePhoto replaces the user's profile photo. The previous
// object is left for lifecycle cleanup rather than deleted inline.
func (s *Service) UploadProfilePhoto(ctx context.Context, userID int64, fileName, contentType string, body io.Reader, size int64) (Photo, error) {
	if userID <= 0 || body == nil || size <= 0 {
		return Photo{}, ErrValidation
	}
	if s.users == nil || s.storage == nil {
		return Photo{}, fmt.Errorf("photo dependencies are not configured")
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return Photo{}, fmt.Errorf("ensure bucket: %w", err)
	}

	objectKey, err := buildPhotoObjectKey(userID, fileName)
	if err != nil {
		return Photo{}, fmt.Errorf("build object key: %w", err)
	}

	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	if err := s.storage.PutPhoto(ctx, objectKey, body, size, contentType); err != nil {
		return Photo{}, fmt.Errorf("put object: %w", err)
	}

	now := s.now()
	if err := s.users.SavePhotoKey(ctx, userID, objectKey, now); err != nil {
		_ = s.storage.Delete(ctx, objectKey)
		return Photo{}, fmt.Errorf("save photo key: %w", err)
	}

	url, err := s.storage.PresignGet(ctx, objectKey, signedURLTTL)
	if err != nil {
		return Photo{}, fmt.Errorf("presign photo url: %w", err)
	}

	return Photo{URL: url, UpdatedAt: now}, nil
}

// PresignGet exposes signed read URLs for stored photo keys.
func (s *Service) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("photo storage is not configured")
	}
	return s.storage.PresignGet(ctx, key, ttl)
}

func buildPhotoObjectKey(userID int64, fileName string) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".bin"
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("users/%d/photo/%s_%s%s", userID, stamp, hex.EncodeToString(rnd), ext), nil
}
