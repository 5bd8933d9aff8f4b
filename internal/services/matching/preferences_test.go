package matching

import (
	"testing"

	"github.com/paoshea/disco-sub000/internal/domain/enums"
	"github.com/paoshea/disco-sub000/internal/domain/model"
)

func TestNormalizePreferencesFillsDefaults(t *testing.T) {
	prefs := NormalizePreferences(model.RawPreferences{})

	if prefs.MaxDistanceKM != 50 {
		t.Fatalf("unexpected max distance: %v", prefs.MaxDistanceKM)
	}
	if prefs.AgeRange.Min != 18 || prefs.AgeRange.Max != 99 {
		t.Fatalf("unexpected age range: %+v", prefs.AgeRange)
	}
	if prefs.ActivityTypes == nil || len(prefs.ActivityTypes) != 0 {
		t.Fatalf("expected empty non-nil activity types, got %#v", prefs.ActivityTypes)
	}
	if prefs.Availability == nil || len(prefs.Availability) != 0 {
		t.Fatalf("expected empty non-nil availability, got %#v", prefs.Availability)
	}
	if prefs.VerifiedOnly {
		t.Fatalf("verified only must default to false")
	}
	if !prefs.WithPhoto {
		t.Fatalf("with photo must default to true")
	}
	if prefs.PrivacyMode != enums.PrivacyModeStandard {
		t.Fatalf("unexpected privacy mode: %v", prefs.PrivacyMode)
	}
	if prefs.TimeWindow != enums.TimeWindowAnytime {
		t.Fatalf("unexpected time window: %v", prefs.TimeWindow)
	}
	if prefs.UseBluetoothProximity {
		t.Fatalf("bluetooth proximity must default to false")
	}
}

func TestNormalizePreferencesKeepsProvidedValues(t *testing.T) {
	maxDistance := 10.0
	verifiedOnly := true
	withPhoto := false
	privacyMode := "strict"
	timeWindow := "this_week"

	prefs := NormalizePreferences(model.RawPreferences{
		MaxDistanceKM: &maxDistance,
		AgeRange:      &model.AgeRange{Min: 25, Max: 35},
		ActivityTypes: []string{"hiking", "music"},
		VerifiedOnly:  &verifiedOnly,
		WithPhoto:     &withPhoto,
		PrivacyMode:   &privacyMode,
		TimeWindow:    &timeWindow,
	})

	if prefs.MaxDistanceKM != 10 {
		t.Fatalf("unexpected max distance: %v", prefs.MaxDistanceKM)
	}
	if prefs.AgeRange.Min != 25 || prefs.AgeRange.Max != 35 {
		t.Fatalf("unexpected age range: %+v", prefs.AgeRange)
	}
	if len(prefs.ActivityTypes) != 2 {
		t.Fatalf("unexpected activity types: %#v", prefs.ActivityTypes)
	}
	if !prefs.VerifiedOnly {
		t.Fatalf("verified only not kept")
	}
	if prefs.WithPhoto {
		t.Fatalf("with photo not kept")
	}
	if prefs.PrivacyMode != enums.PrivacyModeStrict {
		t.Fatalf("unexpected privacy mode: %v", prefs.PrivacyMode)
	}
	if prefs.TimeWindow != enums.TimeWindowThisWeek {
		t.Fatalf("unexpected time window: %v", prefs.TimeWindow)
	}
}

func TestNormalizePreferencesFallsBackOnUnknownEnums(t *testing.T) {
	privacyMode := "ultra"
	timeWindow := "never"

	prefs := NormalizePreferences(model.RawPreferences{
		PrivacyMode: &privacyMode,
		TimeWindow:  &timeWindow,
	})

	if prefs.PrivacyMode != enums.PrivacyModeStandard {
		t.Fatalf("unknown privacy mode should fall back to standard, got %v", prefs.PrivacyMode)
	}
	if prefs.TimeWindow != enums.TimeWindowAnytime {
		t.Fatalf("unknown time window should fall back to anytime, got %v", prefs.TimeWindow)
	}
}

func TestNormalizePreferencesDoesNotAliasInputSlices(t *testing.T) {
	raw := model.RawPreferences{ActivityTypes: []string{"hiking"}}
	prefs := NormalizePreferences(raw)

	prefs.ActivityTypes[0] = "changed"
	if raw.ActivityTypes[0] != "hiking" {
		t.Fatalf("normalizer must not mutate its input")
	}
}

func TestNormalizePreferencesIsIdempotent(t *testing.T) {
	maxDistance := 25.0
	raw := model.RawPreferences{
		MaxDistanceKM: &maxDistance,
		Gender:        []string{"female"},
	}

	first := NormalizePreferences(raw)
	second := NormalizePreferences(raw)

	if first.MaxDistanceKM != second.MaxDistanceKM ||
		len(first.Gender) != len(second.Gender) ||
		first.PrivacyMode != second.PrivacyMode {
		t.Fatalf("normalization not stable: %+v vs %+v", first, second)
	}
}
