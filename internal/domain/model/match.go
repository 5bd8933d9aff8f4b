package model

import (
	"time"

	"github.com/paoshea/disco-sub000/internal/domain/enums"
)

// Match is stored once per user pair with user_lo_id < user_hi_id.
// Blocking is a status, not a deletion.
type Match struct {
	ID        int64             `json:"id"`
	UserLoID  int64             `json:"user_lo_id"`
	UserHiID  int64             `json:"user_hi_id"`
	Status    enums.MatchStatus `json:"status"`
	Score     MatchScore        `json:"score"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PairKey returns the canonical ordering for two user IDs.
func PairKey(userID, targetID int64) (int64, int64) {
	if userID > targetID {
		return targetID, userID
	}
	return userID, targetID
}

func (m Match) Other(userID int64) int64 {
	if m.UserLoID == userID {
		return m.UserHiID
	}
	return m.UserLoID
}
