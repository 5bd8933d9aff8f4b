package dto

import "github.com/paoshea/disco-sub000/internal/domain/model"

type MatchItemResponse struct {
	UserID      int64            `json:"user_id"`
	DisplayName string           `json:"display_name"`
	PhotoURL    string           `json:"photo_url,omitempty"`
	DistanceKM  float64          `json:"distance_km"`
	Score       model.MatchScore `json:"score"`
}

type MatchesResponse struct {
	Items []MatchItemResponse `json:"items"`
}

type MatchStatusRequest struct {
	Status string `json:"status"`
}

type MatchStatusResponse struct {
	Status     string `json:"status"`
	ChatRoomID string `json:"chat_room_id,omitempty"`
}
