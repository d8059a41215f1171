package positionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultHotTTL = 5 * time.Minute

// hotCache is the slice of the cache layer the store drives
type hotCache interface {
	Get(ctx context.Context, key any) (string, error)
	Set(ctx context.Context, key any, object string, options ...store.Option) error
}

// Store keeps the hot latest-position view in redis and the bounded track
// history in the vehicle_tracks collection. The two have very different access
// patterns so they never share a backend.
type Store struct {
	hot hotCache
}

func NewStore(redisClient redis.UniversalClient, ttl time.Duration) *Store {
	if ttl == 0 {
		ttl = DefaultHotTTL
	}

	redisStore := redisstore.NewRedis(redisClient, store.WithExpiration(ttl))

	return &Store{
		hot: cache.New[string](redisStore),
	}
}

func vehicleKey(tenantID string, vehicleID string) string {
	return fmt.Sprintf("hot_position:vehicle:%s:%s", tenantID, vehicleID)
}

func shipmentKey(tenantID string, shipmentID string) string {
	return fmt.Sprintf("hot_position:shipment:%s:%s", tenantID, shipmentID)
}

// PutLatest overwrites the hot entry when the fix is newer than what is
// stored, refreshing the TTL. A fix at or behind the stored timestamp is
// discarded and reported as not stored.
func (s *Store) PutLatest(ctx context.Context, fix *fleetdf.Fix) (bool, error) {
	existing, err := s.getFix(ctx, vehicleKey(fix.TenantID, fix.VehicleID))
	if err != nil {
		return false, err
	}

	if existing != nil && !fix.RecordedAt.After(existing.RecordedAt) {
		return false, nil
	}

	if err := s.hot.Set(ctx, vehicleKey(fix.TenantID, fix.VehicleID), marshalFix(fix)); err != nil {
		return false, err
	}

	if fix.ShipmentID != "" {
		// The vehicle key is the commit point; once it holds the new fix a
		// failed shipment write only leaves that view lagging
		if err := s.hot.Set(ctx, shipmentKey(fix.TenantID, fix.ShipmentID), marshalFix(fix)); err != nil {
			log.Warn().Err(err).Str("shipment", fix.ShipmentID).Msg("Failed to write shipment hot position")
		}
	}

	return true, nil
}

// GetLatest returns the hot fix for a vehicle, or nil when the entry has
// expired or was never written
func (s *Store) GetLatest(ctx context.Context, tenantID string, vehicleID string) (*fleetdf.Fix, error) {
	return s.getFix(ctx, vehicleKey(tenantID, vehicleID))
}

func (s *Store) GetLatestForShipment(ctx context.Context, tenantID string, shipmentID string) (*fleetdf.Fix, error) {
	return s.getFix(ctx, shipmentKey(tenantID, shipmentID))
}

func (s *Store) getFix(ctx context.Context, key string) (*fleetdf.Fix, error) {
	value, err := s.hot.Get(ctx, key)
	if err != nil {
		// A key miss is an answer, a transport failure is not
		if errors.Is(err, &store.NotFound{}) {
			return nil, nil
		}

		return nil, err
	}

	if value == "" {
		return nil, nil
	}

	var fix *fleetdf.Fix
	if err := json.Unmarshal([]byte(value), &fix); err != nil {
		return nil, err
	}

	return fix, nil
}

func marshalFix(fix *fleetdf.Fix) string {
	fixJSON, _ := json.Marshal(fix)
	return string(fixJSON)
}

// AppendHistory writes the fix onto the durable per-vehicle track. Retention
// is enforced by the TTL index on vehicle_tracks.
func (s *Store) AppendHistory(ctx context.Context, fix *fleetdf.Fix) error {
	vehicleTracksCollection := database.GetCollection("vehicle_tracks")
	_, err := vehicleTracksCollection.InsertOne(ctx, fix)

	return err
}

// QueryHistory returns fixes for a vehicle ordered by recorded time descending
func (s *Store) QueryHistory(ctx context.Context, tenantID string, vehicleID string, from time.Time, to time.Time, limit int64) ([]fleetdf.Fix, error) {
	vehicleTracksCollection := database.GetCollection("vehicle_tracks")

	recordedFilter := bson.M{}
	if !from.IsZero() {
		recordedFilter["$gte"] = from
	}
	if !to.IsZero() {
		recordedFilter["$lte"] = to
	}

	query := bson.M{
		"tenantid":  tenantID,
		"vehicleid": vehicleID,
	}
	if len(recordedFilter) > 0 {
		query["recordedat"] = recordedFilter
	}

	opts := options.Find().SetSort(bson.D{{Key: "recordedat", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := vehicleTracksCollection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	fixes := []fleetdf.Fix{}
	if err := cursor.All(ctx, &fixes); err != nil {
		return nil, err
	}

	return fixes, nil
}
