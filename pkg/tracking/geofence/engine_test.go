package geofence

import (
	"testing"
	"time"

	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metres per degree of longitude at the equator
const metresPerDegree = 111194.9

func eastOf(metres float64) fleetdf.Coordinates {
	return fleetdf.Coordinates{Latitude: 0, Longitude: metres / metresPerDegree}
}

func fixAt(location fleetdf.Coordinates) *fleetdf.Fix {
	return &fleetdf.Fix{
		TenantID:   "acme",
		VehicleID:  "truck-1",
		Location:   location,
		RecordedAt: time.Now(),
	}
}

func circleZone(id string, radiusM float64) *fleetdf.Zone {
	return &fleetdf.Zone{
		PrimaryIdentifier: id,
		TenantID:          "acme",
		Name:              id,
		Shape: fleetdf.ZoneShape{
			Type:    fleetdf.ZoneShapeCircle,
			Centre:  fleetdf.Coordinates{Latitude: 0, Longitude: 0},
			RadiusM: radiusM,
		},
		Triggers: fleetdf.ZoneTriggers{OnEntry: true, OnExit: true},
		Active:   true,
	}
}

func TestFirstClassificationEmitsNoEdge(t *testing.T) {
	zones := []*fleetdf.Zone{circleZone("depot", 200)}
	state := MembershipState{}

	result := Evaluate(zones, state, fixAt(eastOf(100)), DefaultAccuracyCeilingM)

	assert.Equal(t, []string{"depot"}, result.Memberships)
	assert.Empty(t, result.Edges)
	assert.True(t, state["depot"])
}

func TestEntryAndExitEdges(t *testing.T) {
	zones := []*fleetdf.Zone{circleZone("depot", 200)}
	state := MembershipState{}

	Evaluate(zones, state, fixAt(eastOf(500)), DefaultAccuracyCeilingM)

	entered := Evaluate(zones, state, fixAt(eastOf(100)), DefaultAccuracyCeilingM)
	require.Len(t, entered.Edges, 1)
	assert.Equal(t, EdgeEntry, entered.Edges[0].Kind)
	assert.Equal(t, "depot", entered.Edges[0].ZoneID)

	still := Evaluate(zones, state, fixAt(eastOf(150)), DefaultAccuracyCeilingM)
	assert.Empty(t, still.Edges)

	left := Evaluate(zones, state, fixAt(eastOf(500)), DefaultAccuracyCeilingM)
	require.Len(t, left.Edges, 1)
	assert.Equal(t, EdgeExit, left.Edges[0].Kind)
}

func TestTriggerFlagsGateEdges(t *testing.T) {
	zone := circleZone("depot", 200)
	zone.Triggers = fleetdf.ZoneTriggers{OnEntry: false, OnExit: true}
	zones := []*fleetdf.Zone{zone}
	state := MembershipState{}

	Evaluate(zones, state, fixAt(eastOf(500)), DefaultAccuracyCeilingM)

	entered := Evaluate(zones, state, fixAt(eastOf(100)), DefaultAccuracyCeilingM)
	assert.Empty(t, entered.Edges)

	left := Evaluate(zones, state, fixAt(eastOf(500)), DefaultAccuracyCeilingM)
	assert.Len(t, left.Edges, 1)
}

func TestHysteresisSuppressesBoundaryJitter(t *testing.T) {
	zone := circleZone("depot", 200)
	zone.Hysteresis = &fleetdf.ZoneHysteresis{InnerRadiusM: 150, OuterRadiusM: 250}
	zones := []*fleetdf.Zone{zone}
	state := MembershipState{}

	// first classification uses the raw radius
	first := Evaluate(zones, state, fixAt(eastOf(100)), DefaultAccuracyCeilingM)
	assert.Empty(t, first.Edges)
	assert.True(t, state["depot"])

	// jitter between the inner and outer radii never flips the state
	for i := 0; i < 5; i++ {
		jitterOut := Evaluate(zones, state, fixAt(eastOf(210)), DefaultAccuracyCeilingM)
		assert.Empty(t, jitterOut.Edges)
		assert.True(t, state["depot"])

		jitterIn := Evaluate(zones, state, fixAt(eastOf(190)), DefaultAccuracyCeilingM)
		assert.Empty(t, jitterIn.Edges)
	}

	// a clean departure beyond the outer radius still exits
	left := Evaluate(zones, state, fixAt(eastOf(300)), DefaultAccuracyCeilingM)
	require.Len(t, left.Edges, 1)
	assert.Equal(t, EdgeExit, left.Edges[0].Kind)

	// re-entry now requires the inner radius
	between := Evaluate(zones, state, fixAt(eastOf(190)), DefaultAccuracyCeilingM)
	assert.Empty(t, between.Edges)
	assert.False(t, state["depot"])

	reentered := Evaluate(zones, state, fixAt(eastOf(100)), DefaultAccuracyCeilingM)
	require.Len(t, reentered.Edges, 1)
	assert.Equal(t, EdgeEntry, reentered.Edges[0].Kind)
}

func TestLowAccuracyFixDefersClassification(t *testing.T) {
	zones := []*fleetdf.Zone{circleZone("depot", 200)}
	state := MembershipState{"depot": true}

	badAccuracy := 300.0
	fix := fixAt(eastOf(500))
	fix.AccuracyM = &badAccuracy

	result := Evaluate(zones, state, fix, DefaultAccuracyCeilingM)

	// memberships are reported from the previous state, nothing changes
	assert.Equal(t, []string{"depot"}, result.Memberships)
	assert.Empty(t, result.Edges)
	assert.True(t, state["depot"])
}

func TestScopedZoneIgnoresOtherVehicles(t *testing.T) {
	zone := circleZone("depot", 200)
	zone.Scope = fleetdf.ZoneScope{VehicleIDs: []string{"truck-2"}}
	zones := []*fleetdf.Zone{zone}
	state := MembershipState{}

	result := Evaluate(zones, state, fixAt(eastOf(100)), DefaultAccuracyCeilingM)

	assert.Empty(t, result.Memberships)
	assert.Empty(t, result.Edges)
	assert.NotContains(t, state, "depot")
}

func TestInvalidZoneIsSkipped(t *testing.T) {
	broken := circleZone("broken", 0)
	good := circleZone("depot", 200)
	state := MembershipState{}

	result := Evaluate([]*fleetdf.Zone{broken, good}, state, fixAt(eastOf(100)), DefaultAccuracyCeilingM)

	assert.Equal(t, []string{"depot"}, result.Memberships)
	assert.NotContains(t, state, "broken")
}
