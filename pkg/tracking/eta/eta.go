package eta

import (
	"context"
	"errors"
	"time"

	"github.com/fleetline/fleetline/pkg/fleetdf"
)

var ErrNoLocation = errors.New("no_location")

const (
	DefaultSpeedKmh = 50.0
	minSpeedKmh     = 5.0
	maxSpeedKmh     = 150.0

	// fixes within this window of the latest one contribute to the estimate
	sampleWindow = 60 * time.Second

	// weight of each newer sample in the exponentially-weighted mean
	ewmaAlpha = 0.5
)

type Estimate struct {
	RemainingDistanceKm float64 `json:"remainingDistanceKm"`
	SpeedEstimateKmh    float64 `json:"speedEstimateKmh"`
	ETASeconds          float64 `json:"etaSeconds"`
	Confidence          string  `json:"confidence"`
}

// PositionSource is the slice of the position store the estimator needs
type PositionSource interface {
	GetLatest(ctx context.Context, tenantID string, vehicleID string) (*fleetdf.Fix, error)
	GetLatestForShipment(ctx context.Context, tenantID string, shipmentID string) (*fleetdf.Fix, error)
	QueryHistory(ctx context.Context, tenantID string, vehicleID string, from time.Time, to time.Time, limit int64) ([]fleetdf.Fix, error)
}

type Service struct {
	Positions PositionSource
}

func NewService(positions PositionSource) *Service {
	return &Service{Positions: positions}
}

func (s *Service) EstimateForVehicle(ctx context.Context, tenantID string, vehicleID string, destination fleetdf.Coordinates) (*Estimate, error) {
	latest, err := s.Positions.GetLatest(ctx, tenantID, vehicleID)
	if err != nil {
		return nil, err
	}

	return s.estimate(ctx, latest, destination)
}

func (s *Service) EstimateForShipment(ctx context.Context, tenantID string, shipmentID string, destination fleetdf.Coordinates) (*Estimate, error) {
	latest, err := s.Positions.GetLatestForShipment(ctx, tenantID, shipmentID)
	if err != nil {
		return nil, err
	}

	return s.estimate(ctx, latest, destination)
}

func (s *Service) estimate(ctx context.Context, latest *fleetdf.Fix, destination fleetdf.Coordinates) (*Estimate, error) {
	if latest == nil {
		return nil, ErrNoLocation
	}

	remainingMetres := latest.Location.DistanceTo(destination)

	speeds := s.recentSpeeds(ctx, latest)

	speed := DefaultSpeedKmh
	confidence := "low"

	if len(speeds) >= 3 {
		speed = clamp(weightedMean(speeds), minSpeedKmh, maxSpeedKmh)
		confidence = "high"
	} else if latest.SpeedKmh != nil && *latest.SpeedKmh > 0 {
		speed = clamp(*latest.SpeedKmh, minSpeedKmh, maxSpeedKmh)
		confidence = "medium"
	}

	if time.Since(latest.RecordedAt) > 2*time.Minute && confidence == "high" {
		confidence = "medium"
	}

	return &Estimate{
		RemainingDistanceKm: remainingMetres / 1000,
		SpeedEstimateKmh:    speed,
		ETASeconds:          (remainingMetres / 1000) / speed * 3600,
		Confidence:          confidence,
	}, nil
}

// recentSpeeds returns the speed samples near the latest fix, oldest first
func (s *Service) recentSpeeds(ctx context.Context, latest *fleetdf.Fix) []float64 {
	history, err := s.Positions.QueryHistory(ctx, latest.TenantID, latest.VehicleID,
		latest.RecordedAt.Add(-sampleWindow), latest.RecordedAt, 20)
	if err != nil {
		return nil
	}

	var speeds []float64

	// history is ordered newest first
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].SpeedKmh != nil {
			speeds = append(speeds, *history[i].SpeedKmh)
		}
	}

	return speeds
}

func weightedMean(speeds []float64) float64 {
	mean := speeds[0]
	for _, speed := range speeds[1:] {
		mean = ewmaAlpha*speed + (1-ewmaAlpha)*mean
	}

	return mean
}

func clamp(value float64, low float64, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}

	return value
}
