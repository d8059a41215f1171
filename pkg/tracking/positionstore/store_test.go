package positionstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyCache fails selected operations while delegating the rest
type flakyCache struct {
	inner   hotCache
	failSet func(key string) bool
	failGet bool
}

func (f *flakyCache) Get(ctx context.Context, key any) (string, error) {
	if f.failGet {
		return "", errors.New("connection refused")
	}

	return f.inner.Get(ctx, key)
}

func (f *flakyCache) Set(ctx context.Context, key any, object string, options ...store.Option) error {
	if f.failSet != nil && f.failSet(key.(string)) {
		return errors.New("connection refused")
	}

	return f.inner.Set(ctx, key, object, options...)
}

func testStore(t *testing.T) *Store {
	server := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	return NewStore(client, time.Minute)
}

func testFix(vehicleID string, recordedAt time.Time) *fleetdf.Fix {
	return &fleetdf.Fix{
		TenantID:   "acme",
		VehicleID:  vehicleID,
		Location:   fleetdf.Coordinates{Latitude: 51.5, Longitude: -0.1},
		RecordedAt: recordedAt,
	}
}

func TestPutAndGetLatest(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	recordedAt := time.Now().Truncate(time.Millisecond)
	stored, err := store.PutLatest(ctx, testFix("truck-1", recordedAt))
	require.NoError(t, err)
	assert.True(t, stored)

	fix, err := store.GetLatest(ctx, "acme", "truck-1")
	require.NoError(t, err)
	require.NotNil(t, fix)
	assert.Equal(t, "truck-1", fix.VehicleID)
	assert.True(t, fix.RecordedAt.Equal(recordedAt))
}

func TestGetLatestMissingVehicle(t *testing.T) {
	store := testStore(t)

	fix, err := store.GetLatest(context.Background(), "acme", "ghost")
	require.NoError(t, err)
	assert.Nil(t, fix)
}

func TestOutOfOrderFixIsDiscarded(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	now := time.Now()

	stored, err := store.PutLatest(ctx, testFix("truck-1", now))
	require.NoError(t, err)
	require.True(t, stored)

	// an older fix never overwrites
	stored, err = store.PutLatest(ctx, testFix("truck-1", now.Add(-30*time.Second)))
	require.NoError(t, err)
	assert.False(t, stored)

	// a resend of the same timestamp is also discarded
	stored, err = store.PutLatest(ctx, testFix("truck-1", now))
	require.NoError(t, err)
	assert.False(t, stored)

	// newer wins
	stored, err = store.PutLatest(ctx, testFix("truck-1", now.Add(30*time.Second)))
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestShipmentView(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	fix := testFix("truck-1", time.Now())
	fix.ShipmentID = "ship-9"

	stored, err := store.PutLatest(ctx, fix)
	require.NoError(t, err)
	require.True(t, stored)

	byShipment, err := store.GetLatestForShipment(ctx, "acme", "ship-9")
	require.NoError(t, err)
	require.NotNil(t, byShipment)
	assert.Equal(t, "truck-1", byShipment.VehicleID)

	missing, err := store.GetLatestForShipment(ctx, "acme", "ship-0")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestShipmentWriteFailureStillCommitsTheFix(t *testing.T) {
	store := testStore(t)
	store.hot = &flakyCache{
		inner: store.hot,
		failSet: func(key string) bool {
			return strings.HasPrefix(key, "hot_position:shipment:")
		},
	}

	ctx := context.Background()
	recordedAt := time.Now().Truncate(time.Millisecond)

	fix := testFix("truck-1", recordedAt)
	fix.ShipmentID = "ship-9"

	stored, err := store.PutLatest(ctx, fix)
	require.NoError(t, err)
	assert.True(t, stored)

	// the vehicle view committed even though the shipment view did not
	latest, err := store.GetLatest(ctx, "acme", "truck-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.RecordedAt.Equal(recordedAt))

	// a resend is correctly stale, and a newer fix still lands
	resent, err := store.PutLatest(ctx, fix)
	require.NoError(t, err)
	assert.False(t, resent)

	newer := testFix("truck-1", recordedAt.Add(30*time.Second))
	newer.ShipmentID = "ship-9"
	stored, err = store.PutLatest(ctx, newer)
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestGetLatestPropagatesTransportErrors(t *testing.T) {
	store := testStore(t)
	store.hot = &flakyCache{inner: store.hot, failGet: true}

	fix, err := store.GetLatest(context.Background(), "acme", "truck-1")
	assert.Error(t, err)
	assert.Nil(t, fix)
}

func TestHotEntryExpires(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	store := NewStore(client, time.Minute)

	ctx := context.Background()

	stored, err := store.PutLatest(ctx, testFix("truck-1", time.Now()))
	require.NoError(t, err)
	require.True(t, stored)

	server.FastForward(2 * time.Minute)

	fix, err := store.GetLatest(ctx, "acme", "truck-1")
	require.NoError(t, err)
	assert.Nil(t, fix)
}
