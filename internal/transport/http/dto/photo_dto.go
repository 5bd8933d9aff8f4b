package dto

import "time"

type ProfilePhotoResponse struct {
	URL       string    `json:"url"`
	UpdatedAt time.Time `json:"updated_at"`
}
