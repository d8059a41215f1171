package geofence

import (
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/rs/zerolog/log"
)

const DefaultAccuracyCeilingM = 150.0

type EdgeKind string

const (
	EdgeEntry EdgeKind = "entry"
	EdgeExit  EdgeKind = "exit"
)

type Edge struct {
	ZoneID   string
	ZoneName string
	Kind     EdgeKind
}

// MembershipState holds the last observed inside/outside classification per
// zone. A zone absent from the map has never been classified.
type MembershipState map[string]bool

type Result struct {
	Memberships []string
	Edges       []Edge
}

// Evaluate classifies the fix against every applicable zone and diffs the
// result against the stored membership state, mutating it in place. The first
// classification for a zone records state without emitting an edge. A fix with
// accuracy beyond the ceiling leaves state untouched.
func Evaluate(zones []*fleetdf.Zone, state MembershipState, fix *fleetdf.Fix, accuracyCeilingM float64) Result {
	result := Result{}

	if fix.AccuracyM != nil && *fix.AccuracyM > accuracyCeilingM {
		log.Debug().
			Str("vehicle", fix.VehicleID).
			Float64("accuracy", *fix.AccuracyM).
			Msg("Deferring geofence classification, fix accuracy above ceiling")

		for zoneID, inside := range state {
			if inside {
				result.Memberships = append(result.Memberships, zoneID)
			}
		}
		return result
	}

	for _, zone := range zones {
		if !zone.AppliesTo(fix) {
			continue
		}

		previous, known := state[zone.PrimaryIdentifier]

		inside, err := classify(zone, fix.Location, previous, known)
		if err != nil {
			// One bad zone must not block the rest of the evaluation
			log.Warn().Err(err).Str("zone", zone.PrimaryIdentifier).Msg("Skipping zone evaluation")
			continue
		}

		state[zone.PrimaryIdentifier] = inside

		if inside {
			result.Memberships = append(result.Memberships, zone.PrimaryIdentifier)
		}

		if !known || previous == inside {
			continue
		}

		if inside && zone.Triggers.OnEntry {
			result.Edges = append(result.Edges, Edge{
				ZoneID:   zone.PrimaryIdentifier,
				ZoneName: zone.Name,
				Kind:     EdgeEntry,
			})
		} else if !inside && zone.Triggers.OnExit {
			result.Edges = append(result.Edges, Edge{
				ZoneID:   zone.PrimaryIdentifier,
				ZoneName: zone.Name,
				Kind:     EdgeExit,
			})
		}
	}

	return result
}

// classify applies hysteresis for circular zones that configure it: entering
// requires the fix within the inner radius, leaving requires it beyond the
// outer radius, and anything between keeps the previous classification.
func classify(zone *fleetdf.Zone, location fleetdf.Coordinates, previous bool, known bool) (bool, error) {
	if zone.Hysteresis == nil || zone.Shape.Type != fleetdf.ZoneShapeCircle || !known {
		return zone.Shape.Contains(location)
	}

	distance := zone.Shape.Centre.DistanceTo(location)

	if previous {
		return distance <= zone.Hysteresis.OuterRadiusM, nil
	}

	return distance <= zone.Hysteresis.InnerRadiusM, nil
}
