package proximity

import (
	"time"

	"github.com/fleetline/fleetline/pkg/fleetdf"
)

const (
	DefaultExitHold  = 60 * time.Second
	DefaultActiveMax = 15 * time.Minute
)

// severity breaks distance ties only when candidates are within this of each other
const distanceTieBreakM = 1.0

// ZoneState tracks one (vehicle, accident zone) pair. Zone geometry is pinned
// at activation so resolution checks keep working even when the zone has left
// the candidate window.
type ZoneState struct {
	Centre  fleetdf.Coordinates
	RadiusM float64

	ActiveSince  time.Time
	OutsideSince *time.Time
}

// State is owned by the per-vehicle serialization context; no locking needed
type State map[string]*ZoneState

type Activation struct {
	Zone      *fleetdf.AccidentZone
	DistanceM float64
}

type Resolution struct {
	ZoneID string
}

type Result struct {
	Activations []Activation
	Resolutions []Resolution
}

type Engine struct {
	ExitHold  time.Duration
	ActiveMax time.Duration
}

func NewEngine() *Engine {
	return &Engine{
		ExitHold:  DefaultExitHold,
		ActiveMax: DefaultActiveMax,
	}
}

// Evaluate advances the per-zone state machines for one fix. Only transitions
// into active produce an alert; repeated fixes inside an active zone do not.
// Active pairs resolve once the vehicle has been continuously outside the
// radius for ExitHold, or unconditionally after ActiveMax.
func (e *Engine) Evaluate(candidates []*fleetdf.AccidentZone, state State, fix *fleetdf.Fix) Result {
	result := Result{}
	at := fix.RecordedAt

	nearest, nearestDistance := nearestQualifying(candidates, fix.Location)

	if nearest != nil {
		if _, active := state[nearest.PrimaryIdentifier]; !active {
			state[nearest.PrimaryIdentifier] = &ZoneState{
				Centre:      nearest.Centre,
				RadiusM:     nearest.RadiusM,
				ActiveSince: at,
			}

			result.Activations = append(result.Activations, Activation{
				Zone:      nearest,
				DistanceM: nearestDistance,
			})
		}
	}

	for zoneID, zoneState := range state {
		if at.Sub(zoneState.ActiveSince) >= e.ActiveMax {
			delete(state, zoneID)
			result.Resolutions = append(result.Resolutions, Resolution{ZoneID: zoneID})
			continue
		}

		if zoneState.Centre.DistanceTo(fix.Location) <= zoneState.RadiusM {
			zoneState.OutsideSince = nil
			continue
		}

		if zoneState.OutsideSince == nil {
			outsideAt := at
			zoneState.OutsideSince = &outsideAt
			continue
		}

		if at.Sub(*zoneState.OutsideSince) >= e.ExitHold {
			delete(state, zoneID)
			result.Resolutions = append(result.Resolutions, Resolution{ZoneID: zoneID})
		}
	}

	return result
}

// nearestQualifying picks the closest zone whose radius covers the location.
// Severity orders candidates only when distances are equal within a metre.
func nearestQualifying(candidates []*fleetdf.AccidentZone, location fleetdf.Coordinates) (*fleetdf.AccidentZone, float64) {
	var nearest *fleetdf.AccidentZone
	nearestDistance := 0.0

	for _, zone := range candidates {
		distance := zone.Centre.DistanceTo(location)
		if distance > zone.RadiusM {
			continue
		}

		switch {
		case nearest == nil:
			nearest, nearestDistance = zone, distance
		case distance < nearestDistance-distanceTieBreakM:
			nearest, nearestDistance = zone, distance
		case distance <= nearestDistance+distanceTieBreakM && zone.Severity.Rank() > nearest.Severity.Rank():
			nearest, nearestDistance = zone, distance
		}
	}

	return nearest, nearestDistance
}
