package proximity

import (
	"testing"
	"time"

	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metresPerDegree = 111194.9

func eastOf(metres float64) fleetdf.Coordinates {
	return fleetdf.Coordinates{Latitude: 0, Longitude: metres / metresPerDegree}
}

func fixAt(location fleetdf.Coordinates, at time.Time) *fleetdf.Fix {
	return &fleetdf.Fix{
		TenantID:   "acme",
		VehicleID:  "truck-1",
		Location:   location,
		RecordedAt: at,
	}
}

func accidentZone(id string, severity fleetdf.AccidentSeverity, radiusM float64) *fleetdf.AccidentZone {
	return &fleetdf.AccidentZone{
		PrimaryIdentifier: id,
		Centre:            fleetdf.Coordinates{Latitude: 0, Longitude: 0},
		Severity:          severity,
		AccidentCount:     12,
		RadiusM:           radiusM,
	}
}

func TestActivationOnlyOnTransition(t *testing.T) {
	engine := NewEngine()
	zones := []*fleetdf.AccidentZone{accidentZone("blackspot", fleetdf.AccidentSeverityHigh, 500)}
	state := State{}
	start := time.Now()

	entered := engine.Evaluate(zones, state, fixAt(eastOf(400), start))
	require.Len(t, entered.Activations, 1)
	assert.Equal(t, "blackspot", entered.Activations[0].Zone.PrimaryIdentifier)
	assert.InDelta(t, 400, entered.Activations[0].DistanceM, 1)

	// staying inside does not re-alert
	again := engine.Evaluate(zones, state, fixAt(eastOf(300), start.Add(10*time.Second)))
	assert.Empty(t, again.Activations)
	assert.Empty(t, again.Resolutions)
}

func TestBriefExitDoesNotResolve(t *testing.T) {
	engine := NewEngine()
	zones := []*fleetdf.AccidentZone{accidentZone("blackspot", fleetdf.AccidentSeverityHigh, 500)}
	state := State{}
	start := time.Now()

	engine.Evaluate(zones, state, fixAt(eastOf(400), start))

	// outside for less than the exit hold
	out := engine.Evaluate(zones, state, fixAt(eastOf(600), start.Add(20*time.Second)))
	assert.Empty(t, out.Resolutions)

	// back inside clears the outside clock and does not re-alert
	back := engine.Evaluate(zones, state, fixAt(eastOf(400), start.Add(40*time.Second)))
	assert.Empty(t, back.Activations)
	assert.Empty(t, back.Resolutions)
	assert.Nil(t, state["blackspot"].OutsideSince)
}

func TestSustainedExitResolves(t *testing.T) {
	engine := NewEngine()
	zones := []*fleetdf.AccidentZone{accidentZone("blackspot", fleetdf.AccidentSeverityHigh, 500)}
	state := State{}
	start := time.Now()

	engine.Evaluate(zones, state, fixAt(eastOf(400), start))

	engine.Evaluate(zones, state, fixAt(eastOf(600), start.Add(10*time.Second)))
	resolved := engine.Evaluate(zones, state, fixAt(eastOf(700), start.Add(10*time.Second+DefaultExitHold)))

	require.Len(t, resolved.Resolutions, 1)
	assert.Equal(t, "blackspot", resolved.Resolutions[0].ZoneID)
	assert.NotContains(t, state, "blackspot")
}

func TestActiveMaxForcesResolution(t *testing.T) {
	engine := NewEngine()
	zones := []*fleetdf.AccidentZone{accidentZone("blackspot", fleetdf.AccidentSeverityHigh, 500)}
	state := State{}
	start := time.Now()

	engine.Evaluate(zones, state, fixAt(eastOf(400), start))

	// still inside, but the pair has been active too long
	resolved := engine.Evaluate(zones, state, fixAt(eastOf(300), start.Add(DefaultActiveMax)))

	require.Len(t, resolved.Resolutions, 1)
	assert.NotContains(t, state, "blackspot")
}

func TestResolutionUsesPinnedGeometry(t *testing.T) {
	engine := NewEngine()
	zones := []*fleetdf.AccidentZone{accidentZone("blackspot", fleetdf.AccidentSeverityHigh, 500)}
	state := State{}
	start := time.Now()

	engine.Evaluate(zones, state, fixAt(eastOf(400), start))

	// the zone is gone from the candidate window but the state machine still
	// tracks the exit against the pinned geometry
	engine.Evaluate(nil, state, fixAt(eastOf(600), start.Add(10*time.Second)))
	resolved := engine.Evaluate(nil, state, fixAt(eastOf(700), start.Add(10*time.Second+DefaultExitHold)))

	require.Len(t, resolved.Resolutions, 1)
}

func TestNearestZoneWinsSeverityBreaksTies(t *testing.T) {
	engine := NewEngine()
	near := accidentZone("near-low", fleetdf.AccidentSeverityLow, 500)
	far := accidentZone("far-high", fleetdf.AccidentSeverityHigh, 5000)
	far.Centre = eastOf(2000)

	state := State{}
	result := engine.Evaluate([]*fleetdf.AccidentZone{far, near}, state, fixAt(eastOf(100), time.Now()))

	// distance dominates when the gap is real
	require.Len(t, result.Activations, 1)
	assert.Equal(t, "near-low", result.Activations[0].Zone.PrimaryIdentifier)

	// identical geometry: severity decides
	lowTwin := accidentZone("twin-low", fleetdf.AccidentSeverityLow, 500)
	highTwin := accidentZone("twin-high", fleetdf.AccidentSeverityHigh, 500)

	twinState := State{}
	twinResult := engine.Evaluate([]*fleetdf.AccidentZone{lowTwin, highTwin}, twinState, fixAt(eastOf(100), time.Now()))

	require.Len(t, twinResult.Activations, 1)
	assert.Equal(t, "twin-high", twinResult.Activations[0].Zone.PrimaryIdentifier)
}
