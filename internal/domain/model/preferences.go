package model

import "github.com/paoshea/disco-sub000/internal/domain/enums"

type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// MatchPreferences is the canonical, fully-populated preference record.
// Only the normalizer in services/matching produces these; a partially
// stored record never crosses that boundary.
type MatchPreferences struct {
	MaxDistanceKM         float64           `json:"max_distance_km"`
	AgeRange              AgeRange          `json:"age_range"`
	ActivityTypes         []string          `json:"activity_types"`
	Availability          []string          `json:"availability"`
	Gender                []string          `json:"gender"`
	LookingFor            []string          `json:"looking_for"`
	RelationshipType      []string          `json:"relationship_type"`
	VerifiedOnly          bool              `json:"verified_only"`
	WithPhoto             bool              `json:"with_photo"`
	PrivacyMode           enums.PrivacyMode `json:"privacy_mode"`
	TimeWindow            enums.TimeWindow  `json:"time_window"`
	UseBluetoothProximity bool              `json:"use_bluetooth_proximity"`
}

// RawPreferences mirrors MatchPreferences with every field optional.
// It is the shape stored preference rows and PUT payloads arrive in.
type RawPreferences struct {
	MaxDistanceKM         *float64  `json:"max_distance_km,omitempty"`
	AgeRange              *AgeRange `json:"age_range,omitempty"`
	ActivityTypes         []string  `json:"activity_types,omitempty"`
	Availability          []string  `json:"availability,omitempty"`
	Gender                []string  `json:"gender,omitempty"`
	LookingFor            []string  `json:"looking_for,omitempty"`
	RelationshipType      []string  `json:"relationship_type,omitempty"`
	VerifiedOnly          *bool     `json:"verified_only,omitempty"`
	WithPhoto             *bool     `json:"with_photo,omitempty"`
	PrivacyMode           *string   `json:"privacy_mode,omitempty"`
	TimeWindow            *string   `json:"time_window,omitempty"`
	UseBluetoothProximity *bool     `json:"use_bluetooth_proximity,omitempty"`
}
