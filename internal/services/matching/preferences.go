package matching

import (
	"github.com/paoshea/disco-sub000/internal/domain/enums"
	"github.com/paoshea/disco-sub000/internal/domain/model"
)

const (
	defaultMaxDistanceKM = 50.0
	defaultAgeMin        = 18
	defaultAgeMax        = 99
)

// NormalizePreferences turns a possibly partial stored record into the
// canonical form every scorer consumes. Missing numeric fields get the
// documented defaults, missing lists become empty non-nil slices, and
// unknown enum strings fall back to their defaults. The input is never
// mutated.
func NormalizePreferences(raw model.RawPreferences) model.MatchPreferences {
	prefs := model.MatchPreferences{
		MaxDistanceKM:         defaultMaxDistanceKM,
		AgeRange:              model.AgeRange{Min: defaultAgeMin, Max: defaultAgeMax},
		ActivityTypes:         normalizeList(raw.ActivityTypes),
		Availability:          normalizeList(raw.Availability),
		Gender:                normalizeList(raw.Gender),
		LookingFor:            normalizeList(raw.LookingFor),
		RelationshipType:      normalizeList(raw.RelationshipType),
		VerifiedOnly:          false,
		WithPhoto:             true,
		PrivacyMode:           enums.PrivacyModeStandard,
		TimeWindow:            enums.TimeWindowAnytime,
		UseBluetoothProximity: false,
	}

	if raw.MaxDistanceKM != nil {
		prefs.MaxDistanceKM = *raw.MaxDistanceKM
	}
	if raw.AgeRange != nil {
		prefs.AgeRange = *raw.AgeRange
	}
	if raw.VerifiedOnly != nil {
		prefs.VerifiedOnly = *raw.VerifiedOnly
	}
	if raw.WithPhoto != nil {
		prefs.WithPhoto = *raw.WithPhoto
	}
	if raw.PrivacyMode != nil {
		if mode, ok := enums.ParsePrivacyMode(*raw.PrivacyMode); ok {
			prefs.PrivacyMode = mode
		}
	}
	if raw.TimeWindow != nil {
		if window, ok := enums.ParseTimeWindow(*raw.TimeWindow); ok {
			prefs.TimeWindow = window
		}
	}
	if raw.UseBluetoothProximity != nil {
		prefs.UseBluetoothProximity = *raw.UseBluetoothProximity
	}

	return prefs
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	out = append(out, values...)
	return out
}
