package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/paoshea/disco-sub000/internal/services/auth"
	photossvc "github.com/paoshea/disco-sub000/internal/services/photos"
	"github.com/paoshea/disco-sub000/internal/transport/http/dto"
	httperrors "github.com/paoshea/disco-sub000/internal/transport/http/errors"
)

const maxPhotoUploadSize = 20 << 20 // 20 MiB

type PhotoHandler struct {
	service *photossvc.Service
}

func NewPhotoHandler(service *photossvc.Service) *PhotoHandler {
	return &PhotoHandler{service: service}
}

func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PHOTO_SERVICE_UNAVAILABLE", "photo service is unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUploadSize)
	if err := r.ParseMultipartForm(maxPhotoUploadSize); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "file is required")
		return
	}
	defer file.Close()

	if header == nil || header.Size <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "file is empty")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	photo, err := h.service.UploadProfilePhoto(r.Context(), identity.UserID, header.Filename, contentType, file, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, photossvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid photo upload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to upload photo")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ProfilePhotoResponse{
		URL:       photo.URL,
		UpdatedAt: photo.UpdatedAt,
	})
}
