package zoneregistry

import (
	"testing"

	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testZone(id string, tenantID string, centre fleetdf.Coordinates) *fleetdf.Zone {
	return &fleetdf.Zone{
		PrimaryIdentifier: id,
		TenantID:          tenantID,
		Name:              id,
		Shape: fleetdf.ZoneShape{
			Type:    fleetdf.ZoneShapeCircle,
			Centre:  centre,
			RadiusM: 500,
		},
		Active: true,
	}
}

func TestCandidatesReturnNearbyZonesOnly(t *testing.T) {
	registry := NewRegistry()

	near := testZone("near", "acme", fleetdf.Coordinates{Latitude: 51.5, Longitude: -0.1})
	far := testZone("far", "acme", fleetdf.Coordinates{Latitude: 40.7, Longitude: -74.0})

	require.NoError(t, registry.UpsertZone(near))
	require.NoError(t, registry.UpsertZone(far))

	candidates := registry.Snapshot().GeofenceCandidates("acme", fleetdf.Coordinates{Latitude: 51.51, Longitude: -0.11})

	require.Len(t, candidates, 1)
	assert.Equal(t, "near", candidates[0].PrimaryIdentifier)
}

func TestCandidatesFilterTenantAndActive(t *testing.T) {
	registry := NewRegistry()
	centre := fleetdf.Coordinates{Latitude: 51.5, Longitude: -0.1}

	require.NoError(t, registry.UpsertZone(testZone("mine", "acme", centre)))
	require.NoError(t, registry.UpsertZone(testZone("theirs", "globex", centre)))

	inactive := testZone("inactive", "acme", centre)
	inactive.Active = false
	require.NoError(t, registry.UpsertZone(inactive))

	candidates := registry.Snapshot().GeofenceCandidates("acme", centre)

	require.Len(t, candidates, 1)
	assert.Equal(t, "mine", candidates[0].PrimaryIdentifier)
}

func TestCandidatesAcrossCellBoundary(t *testing.T) {
	registry := NewRegistry()

	// zone centred just under a whole degree, fix just over it
	edge := testZone("edge", "acme", fleetdf.Coordinates{Latitude: 50.9999, Longitude: 0.9999})
	require.NoError(t, registry.UpsertZone(edge))

	candidates := registry.Snapshot().GeofenceCandidates("acme", fleetdf.Coordinates{Latitude: 51.0001, Longitude: 1.0001})

	require.Len(t, candidates, 1)
}

func TestUpsertInvalidZoneLeavesSnapshotUntouched(t *testing.T) {
	registry := NewRegistry()

	valid := testZone("valid", "acme", fleetdf.Coordinates{Latitude: 51.5, Longitude: -0.1})
	require.NoError(t, registry.UpsertZone(valid))

	broken := testZone("broken", "acme", fleetdf.Coordinates{Latitude: 51.5, Longitude: -0.1})
	broken.Shape.RadiusM = 0

	assert.ErrorIs(t, registry.UpsertZone(broken), fleetdf.ErrInvalidZoneShape)

	snapshot := registry.Snapshot()
	assert.NotNil(t, snapshot.Zone("valid"))
	assert.Nil(t, snapshot.Zone("broken"))
}

func TestSnapshotIsImmutableUnderWrites(t *testing.T) {
	registry := NewRegistry()
	centre := fleetdf.Coordinates{Latitude: 51.5, Longitude: -0.1}

	require.NoError(t, registry.UpsertZone(testZone("first", "acme", centre)))

	held := registry.Snapshot()

	require.NoError(t, registry.UpsertZone(testZone("second", "acme", centre)))
	registry.RemoveZone("first")

	// the held snapshot still sees the world as it was
	assert.NotNil(t, held.Zone("first"))
	assert.Nil(t, held.Zone("second"))

	current := registry.Snapshot()
	assert.Nil(t, current.Zone("first"))
	assert.NotNil(t, current.Zone("second"))
}

func TestAccidentZones(t *testing.T) {
	registry := NewRegistry()

	accidentZone := &fleetdf.AccidentZone{
		PrimaryIdentifier: "blackspot",
		Centre:            fleetdf.Coordinates{Latitude: 51.5, Longitude: -0.1},
		Severity:          fleetdf.AccidentSeverityHigh,
		AccidentCount:     8,
		RadiusM:           500,
	}
	require.NoError(t, registry.UpsertAccidentZone(accidentZone))

	candidates := registry.Snapshot().AccidentZoneCandidates(fleetdf.Coordinates{Latitude: 51.5, Longitude: -0.1})
	require.Len(t, candidates, 1)
	assert.Equal(t, "blackspot", candidates[0].PrimaryIdentifier)

	invalid := &fleetdf.AccidentZone{PrimaryIdentifier: "bad", RadiusM: -1}
	assert.ErrorIs(t, registry.UpsertAccidentZone(invalid), fleetdf.ErrInvalidZoneShape)
}
