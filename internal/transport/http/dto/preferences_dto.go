package dto

import "github.com/paoshea/disco-sub000/internal/domain/model"

// PreferencesResponse always carries the effective preferences, with
// every default applied, not the raw stored record.
type PreferencesResponse struct {
	Preferences model.MatchPreferences `json:"preferences"`
}

type PreferencesUpdateRequest struct {
	model.RawPreferences
}
