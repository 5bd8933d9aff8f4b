package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrValidation = errors.New("validation error")

type ProfileLocationSaver interface {
	SaveLocation(ctx context.Context, userID int64, lat, lon float64, at time.Time) error
}

type Service struct {
	saver ProfileLocationSaver
	now   func() time.Time
}

func NewService(saver ProfileLocationSaver) *Service {
	return &Service{
		saver: saver,
		now:   time.Now,
	}
}

func (s *Service) UpdateProfileLocation(ctx context.Context, userID int64, lat, lon float64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id: %w", ErrValidation)
	}
	if err := ValidateCoordinates(lat, lon); err != nil {
		return err
	}
	if s.saver == nil {
		return fmt.Errorf("location saver is not configured")
	}

	return s.saver.SaveLocation(ctx, userID, lat, lon, s.now())
}

func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("invalid coordinates: %w", ErrValidation)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinates out of range: %w", ErrValidation)
	}
	return nil
}

// DistanceKM returns the great-circle distance between two points.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0

	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}
