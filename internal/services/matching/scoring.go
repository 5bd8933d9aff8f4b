package matching

import (
	"github.com/paoshea/disco-sub000/internal/domain/model"
	"github.com/paoshea/disco-sub000/internal/services/geo"
)

// Profile carries everything scoring needs to know about one side of a
// pair. Lat and Lon are nil when the user never shared a location.
type Profile struct {
	UserID        int64
	EmailVerified bool
	HasPhoto      bool
	Lat           *float64
	Lon           *float64
	Preferences   model.MatchPreferences
}

func (p Profile) hasLocation() bool {
	return p.Lat != nil && p.Lon != nil
}

// DistanceScore maps a distance onto [0, 1] linearly against the
// viewer's maximum: 1 at zero distance, 0 at or beyond the maximum.
// A non-positive maximum scores 0 regardless of distance.
func DistanceScore(distanceKM, maxDistanceKM float64) float64 {
	if maxDistanceKM <= 0 {
		return 0
	}
	score := 1 - distanceKM/maxDistanceKM
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// OverlapScore is the fraction of the viewer's list that the candidate
// shares. An empty viewer list scores 0, not 1: no stated interests
// means no evidence of compatibility.
func OverlapScore(mine, theirs []string) float64 {
	if len(mine) == 0 {
		return 0
	}

	theirSet := make(map[string]struct{}, len(theirs))
	for _, v := range theirs {
		theirSet[v] = struct{}{}
	}

	shared := 0
	seen := make(map[string]struct{}, len(mine))
	for _, v := range mine {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if _, ok := theirSet[v]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(seen))
}

func anyOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// preferenceAlignment runs the binary any-overlap checks over gender,
// looking-for and relationship-type lists. Only checks where both
// sides supplied a non-empty list count toward the denominator.
func preferenceAlignment(viewer, candidate model.MatchPreferences) float64 {
	checks := [][2][]string{
		{viewer.Gender, candidate.Gender},
		{viewer.LookingFor, candidate.LookingFor},
		{viewer.RelationshipType, candidate.RelationshipType},
	}

	counted := 0
	passed := 0
	for _, pair := range checks {
		if len(pair[0]) == 0 || len(pair[1]) == 0 {
			continue
		}
		counted++
		if anyOverlap(pair[0], pair[1]) {
			passed++
		}
	}

	if counted == 0 {
		return 0
	}
	return float64(passed) / float64(counted)
}

type Weights struct {
	Distance     float64
	Interests    float64
	Verification float64
	Availability float64
	Preferences  float64
	Age          float64
	Photo        float64
}

func DefaultWeights() Weights {
	return Weights{
		Distance:     0.30,
		Interests:    0.20,
		Verification: 0.10,
		Availability: 0.15,
		Preferences:  0.15,
		Age:          0.05,
		Photo:        0.05,
	}
}

// Calculator combines the component scorers into one weighted total.
type Calculator struct {
	weights Weights
}

func NewCalculator(weights Weights) *Calculator {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Calculator{weights: weights}
}

// Calculate scores the candidate from the viewer's perspective. The
// second return is false when either side lacks a location, in which
// case the pair is not scoreable at all rather than scored low.
//
// The age component is always 0: birth dates are not part of the
// profile yet, and keeping the weighted slot means totals will not
// shift when they land. See also the weights above, which sum to 1.
func (c *Calculator) Calculate(viewer, candidate Profile) (model.MatchScore, bool) {
	if !viewer.hasLocation() || !candidate.hasLocation() {
		return model.MatchScore{}, false
	}

	distanceKM := geo.DistanceKM(*viewer.Lat, *viewer.Lon, *candidate.Lat, *candidate.Lon)

	score := model.MatchScore{
		Distance:     DistanceScore(distanceKM, viewer.Preferences.MaxDistanceKM),
		Interests:    OverlapScore(viewer.Preferences.ActivityTypes, candidate.Preferences.ActivityTypes),
		Verification: boolScore(candidate.EmailVerified),
		Availability: OverlapScore(viewer.Preferences.Availability, candidate.Preferences.Availability),
		Preferences:  preferenceAlignment(viewer.Preferences, candidate.Preferences),
		Age:          0,
		Photo:        boolScore(candidate.HasPhoto),
	}

	score.Total = score.Distance*c.weights.Distance +
		score.Interests*c.weights.Interests +
		score.Verification*c.weights.Verification +
		score.Availability*c.weights.Availability +
		score.Preferences*c.weights.Preferences +
		score.Age*c.weights.Age +
		score.Photo*c.weights.Photo

	return score, true
}

func boolScore(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
