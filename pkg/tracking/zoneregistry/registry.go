package zoneregistry

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/exp/maps"
)

// metres per degree of latitude, used to pad grid coverage for zone radii
const metresPerDegree = 111320.0

type cellKey struct {
	LatCell int
	LonCell int
}

// Snapshot is an immutable view of the zone sets. Evaluations hold one
// snapshot for their whole run so concurrent upserts never change the zone set
// mid-fix.
type Snapshot struct {
	geofences     map[string]*fleetdf.Zone
	accidentZones map[string]*fleetdf.AccidentZone

	geofenceCells map[cellKey][]string
	accidentCells map[cellKey][]string

	RefreshedAt time.Time
}

// Registry holds the current snapshot behind an atomic pointer. Readers never
// block writers; writers clone, mutate and swap.
type Registry struct {
	writeMutex sync.Mutex
	snapshot   atomic.Pointer[Snapshot]
}

func NewRegistry() *Registry {
	registry := &Registry{}
	registry.snapshot.Store(emptySnapshot())

	return registry
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		geofences:     map[string]*fleetdf.Zone{},
		accidentZones: map[string]*fleetdf.AccidentZone{},
		geofenceCells: map[cellKey][]string{},
		accidentCells: map[cellKey][]string{},
		RefreshedAt:   time.Now(),
	}
}

// Snapshot returns the current consistent view
func (r *Registry) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Load replaces the registry contents from the zones and accident_zones
// collections
func (r *Registry) Load(ctx context.Context) error {
	zonesCollection := database.GetCollection("zones")
	cursor, err := zonesCollection.Find(ctx, bson.M{})
	if err != nil {
		return err
	}

	var zones []*fleetdf.Zone
	if err := cursor.All(ctx, &zones); err != nil {
		return err
	}

	accidentZonesCollection := database.GetCollection("accident_zones")
	cursor, err = accidentZonesCollection.Find(ctx, bson.M{})
	if err != nil {
		return err
	}

	var accidentZones []*fleetdf.AccidentZone
	if err := cursor.All(ctx, &accidentZones); err != nil {
		return err
	}

	r.writeMutex.Lock()
	defer r.writeMutex.Unlock()

	snapshot := emptySnapshot()
	for _, zone := range zones {
		if err := zone.Shape.Validate(); err != nil {
			continue
		}
		snapshot.geofences[zone.PrimaryIdentifier] = zone
	}
	for _, accidentZone := range accidentZones {
		snapshot.accidentZones[accidentZone.PrimaryIdentifier] = accidentZone
	}
	snapshot.reindex()

	r.snapshot.Store(snapshot)

	return nil
}

// UpsertZone reindexes the affected cells atomically. On validation failure
// the prior snapshot stays active.
func (r *Registry) UpsertZone(zone *fleetdf.Zone) error {
	if err := zone.Shape.Validate(); err != nil {
		return err
	}

	r.writeMutex.Lock()
	defer r.writeMutex.Unlock()

	snapshot := r.snapshot.Load().clone()
	snapshot.geofences[zone.PrimaryIdentifier] = zone
	snapshot.reindex()

	r.snapshot.Store(snapshot)

	return nil
}

func (r *Registry) RemoveZone(zoneID string) {
	r.writeMutex.Lock()
	defer r.writeMutex.Unlock()

	snapshot := r.snapshot.Load().clone()
	delete(snapshot.geofences, zoneID)
	snapshot.reindex()

	r.snapshot.Store(snapshot)
}

func (r *Registry) UpsertAccidentZone(accidentZone *fleetdf.AccidentZone) error {
	if !accidentZone.Centre.Valid() || accidentZone.RadiusM <= 0 {
		return fleetdf.ErrInvalidZoneShape
	}

	r.writeMutex.Lock()
	defer r.writeMutex.Unlock()

	snapshot := r.snapshot.Load().clone()
	snapshot.accidentZones[accidentZone.PrimaryIdentifier] = accidentZone
	snapshot.reindex()

	r.snapshot.Store(snapshot)

	return nil
}

func (s *Snapshot) clone() *Snapshot {
	cloned := &Snapshot{
		geofences:     maps.Clone(s.geofences),
		accidentZones: maps.Clone(s.accidentZones),
		geofenceCells: map[cellKey][]string{},
		accidentCells: map[cellKey][]string{},
		RefreshedAt:   time.Now(),
	}

	return cloned
}

func (s *Snapshot) reindex() {
	s.geofenceCells = map[cellKey][]string{}
	s.accidentCells = map[cellKey][]string{}
	s.RefreshedAt = time.Now()

	for id, zone := range s.geofences {
		centre, radius := zone.Shape.BoundingCircle()
		for _, cell := range coveredCells(centre, radius) {
			s.geofenceCells[cell] = append(s.geofenceCells[cell], id)
		}
	}

	for id, accidentZone := range s.accidentZones {
		for _, cell := range coveredCells(accidentZone.Centre, accidentZone.RadiusM) {
			s.accidentCells[cell] = append(s.accidentCells[cell], id)
		}
	}
}

func cellOf(c fleetdf.Coordinates) cellKey {
	return cellKey{
		LatCell: int(math.Floor(c.Latitude)),
		LonCell: int(math.Floor(c.Longitude)),
	}
}

// coveredCells returns every ~1 degree grid cell the bounding circle touches
func coveredCells(centre fleetdf.Coordinates, radiusM float64) []cellKey {
	degreesPadding := radiusM / metresPerDegree

	minLat := int(math.Floor(centre.Latitude - degreesPadding))
	maxLat := int(math.Floor(centre.Latitude + degreesPadding))
	minLon := int(math.Floor(centre.Longitude - degreesPadding))
	maxLon := int(math.Floor(centre.Longitude + degreesPadding))

	var cells []cellKey
	for lat := minLat; lat <= maxLat; lat++ {
		for lon := minLon; lon <= maxLon; lon++ {
			cells = append(cells, cellKey{LatCell: lat, LonCell: lon})
		}
	}

	return cells
}

// GeofenceCandidates returns the tenant's active geofences registered in the
// fix's cell and its eight neighbours
func (s *Snapshot) GeofenceCandidates(tenantID string, c fleetdf.Coordinates) []*fleetdf.Zone {
	var candidates []*fleetdf.Zone
	seen := map[string]bool{}

	for _, cell := range neighbourhood(cellOf(c)) {
		for _, zoneID := range s.geofenceCells[cell] {
			if seen[zoneID] {
				continue
			}
			seen[zoneID] = true

			zone := s.geofences[zoneID]
			if zone.TenantID == tenantID && zone.Active {
				candidates = append(candidates, zone)
			}
		}
	}

	return candidates
}

// AccidentZoneCandidates returns accident zones near the coordinate. The set
// is global so there is no tenant filter.
func (s *Snapshot) AccidentZoneCandidates(c fleetdf.Coordinates) []*fleetdf.AccidentZone {
	var candidates []*fleetdf.AccidentZone
	seen := map[string]bool{}

	for _, cell := range neighbourhood(cellOf(c)) {
		for _, zoneID := range s.accidentCells[cell] {
			if seen[zoneID] {
				continue
			}
			seen[zoneID] = true

			candidates = append(candidates, s.accidentZones[zoneID])
		}
	}

	return candidates
}

func (s *Snapshot) Zone(zoneID string) *fleetdf.Zone {
	return s.geofences[zoneID]
}

func (s *Snapshot) AccidentZone(zoneID string) *fleetdf.AccidentZone {
	return s.accidentZones[zoneID]
}

func (s *Snapshot) Age() time.Duration {
	return time.Since(s.RefreshedAt)
}

func neighbourhood(cell cellKey) []cellKey {
	cells := make([]cellKey, 0, 9)
	for latOffset := -1; latOffset <= 1; latOffset++ {
		for lonOffset := -1; lonOffset <= 1; lonOffset++ {
			cells = append(cells, cellKey{LatCell: cell.LatCell + latOffset, LonCell: cell.LonCell + lonOffset})
		}
	}

	return cells
}
