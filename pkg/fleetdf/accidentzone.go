package fleetdf

import "time"

type AccidentSeverity string

const (
	AccidentSeverityLow    AccidentSeverity = "low"
	AccidentSeverityMedium AccidentSeverity = "medium"
	AccidentSeverityHigh   AccidentSeverity = "high"
)

// Rank orders severities for tie-breaking, higher is worse
func (s AccidentSeverity) Rank() int {
	switch s {
	case AccidentSeverityHigh:
		return 3
	case AccidentSeverityMedium:
		return 2
	case AccidentSeverityLow:
		return 1
	}

	return 0
}

// AccidentZone is a curated high-incident area. The set is global - it is not
// scoped to any tenant and is read-only from the tracking engine's perspective.
type AccidentZone struct {
	PrimaryIdentifier string `groups:"basic" json:"zoneId" bson:"primaryidentifier"`

	Centre        Coordinates      `groups:"basic" json:"center" bson:"centre"`
	Severity      AccidentSeverity `groups:"basic" json:"severity" bson:"severity"`
	AccidentCount int              `groups:"basic" json:"accidentCount" bson:"accidentcount"`
	RadiusM       float64          `groups:"basic" json:"radiusM" bson:"radiusm"`

	ModificationDateTime time.Time `groups:"detailed" json:"modifiedAt" bson:"modificationdatetime"`
}
