package eta

import (
	"context"
	"testing"
	"time"

	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePositions struct {
	latest  *fleetdf.Fix
	history []fleetdf.Fix
}

func (f *fakePositions) GetLatest(ctx context.Context, tenantID string, vehicleID string) (*fleetdf.Fix, error) {
	return f.latest, nil
}

func (f *fakePositions) GetLatestForShipment(ctx context.Context, tenantID string, shipmentID string) (*fleetdf.Fix, error) {
	return f.latest, nil
}

func (f *fakePositions) QueryHistory(ctx context.Context, tenantID string, vehicleID string, from time.Time, to time.Time, limit int64) ([]fleetdf.Fix, error) {
	return f.history, nil
}

func floatPtr(value float64) *float64 {
	return &value
}

func historyFix(speedKmh float64, at time.Time) fleetdf.Fix {
	return fleetdf.Fix{
		TenantID:   "acme",
		VehicleID:  "truck-1",
		SpeedKmh:   floatPtr(speedKmh),
		RecordedAt: at,
	}
}

func TestEstimateWithRecentHistory(t *testing.T) {
	now := time.Now()
	latest := historyFix(58, now)
	latest.Location = fleetdf.Coordinates{Latitude: 0, Longitude: 0}

	positions := &fakePositions{
		latest: &latest,
		// newest first, as the store returns it
		history: []fleetdf.Fix{
			historyFix(58, now),
			historyFix(62, now.Add(-20*time.Second)),
			historyFix(60, now.Add(-40*time.Second)),
		},
	}

	service := NewService(positions)

	destination := fleetdf.Coordinates{Latitude: 0, Longitude: 1}
	estimate, err := service.EstimateForVehicle(context.Background(), "acme", "truck-1", destination)
	require.NoError(t, err)

	// weighted mean of 60, 62, 58 oldest to newest
	assert.InDelta(t, 59.5, estimate.SpeedEstimateKmh, 0.01)
	assert.InDelta(t, 111.2, estimate.RemainingDistanceKm, 0.5)
	assert.InDelta(t, 6727, estimate.ETASeconds, 60)
	assert.Equal(t, "high", estimate.Confidence)
}

func TestEstimateFallsBackToLastKnownSpeed(t *testing.T) {
	now := time.Now()
	latest := historyFix(40, now)
	latest.Location = fleetdf.Coordinates{Latitude: 0, Longitude: 0}

	positions := &fakePositions{
		latest:  &latest,
		history: []fleetdf.Fix{historyFix(40, now)},
	}

	estimate, err := NewService(positions).EstimateForVehicle(
		context.Background(), "acme", "truck-1", fleetdf.Coordinates{Latitude: 0, Longitude: 1})
	require.NoError(t, err)

	assert.InDelta(t, 40, estimate.SpeedEstimateKmh, 0.01)
	assert.Equal(t, "medium", estimate.Confidence)
}

func TestEstimateDefaultsWithoutSpeedData(t *testing.T) {
	latest := &fleetdf.Fix{
		TenantID:   "acme",
		VehicleID:  "truck-1",
		Location:   fleetdf.Coordinates{Latitude: 0, Longitude: 0},
		RecordedAt: time.Now(),
	}

	estimate, err := NewService(&fakePositions{latest: latest}).EstimateForVehicle(
		context.Background(), "acme", "truck-1", fleetdf.Coordinates{Latitude: 0, Longitude: 1})
	require.NoError(t, err)

	assert.InDelta(t, DefaultSpeedKmh, estimate.SpeedEstimateKmh, 0.01)
	assert.Equal(t, "low", estimate.Confidence)
}

func TestEstimateClampsImplausibleSpeeds(t *testing.T) {
	now := time.Now()
	latest := historyFix(300, now)
	latest.Location = fleetdf.Coordinates{Latitude: 0, Longitude: 0}

	positions := &fakePositions{
		latest: &latest,
		history: []fleetdf.Fix{
			historyFix(300, now),
			historyFix(280, now.Add(-20*time.Second)),
			historyFix(290, now.Add(-40*time.Second)),
		},
	}

	estimate, err := NewService(positions).EstimateForVehicle(
		context.Background(), "acme", "truck-1", fleetdf.Coordinates{Latitude: 0, Longitude: 1})
	require.NoError(t, err)

	assert.InDelta(t, 150, estimate.SpeedEstimateKmh, 0.01)
}

func TestStaleFixDowngradesConfidence(t *testing.T) {
	recordedAt := time.Now().Add(-5 * time.Minute)
	latest := historyFix(60, recordedAt)
	latest.Location = fleetdf.Coordinates{Latitude: 0, Longitude: 0}

	positions := &fakePositions{
		latest: &latest,
		history: []fleetdf.Fix{
			historyFix(60, recordedAt),
			historyFix(60, recordedAt.Add(-20*time.Second)),
			historyFix(60, recordedAt.Add(-40*time.Second)),
		},
	}

	estimate, err := NewService(positions).EstimateForVehicle(
		context.Background(), "acme", "truck-1", fleetdf.Coordinates{Latitude: 0, Longitude: 1})
	require.NoError(t, err)

	assert.Equal(t, "medium", estimate.Confidence)
}

func TestNoLocationError(t *testing.T) {
	_, err := NewService(&fakePositions{}).EstimateForVehicle(
		context.Background(), "acme", "truck-1", fleetdf.Coordinates{Latitude: 0, Longitude: 1})

	assert.ErrorIs(t, err, ErrNoLocation)
}
