package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/redis_client"
	"go.mongodb.org/mongo-driver/bson"
)

var vehicleExistenceCache *cache.Cache[string]

func CreateVehicleExistenceCache() {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(15*time.Minute))

	vehicleExistenceCache = cache.New[string](redisStore)
}

// vehicleExistsCached checks the vehicles collection through a short-lived
// cache so per-fix validation stays cheap
func (c *Coordinator) vehicleExistsCached(ctx context.Context, tenantID string, vehicleID string) (bool, error) {
	cacheKey := fmt.Sprintf("vehicle_exists:%s:%s", tenantID, vehicleID)

	if vehicleExistenceCache != nil {
		cached, _ := vehicleExistenceCache.Get(ctx, cacheKey)

		switch cached {
		case "Y":
			return true, nil
		case "N":
			return false, nil
		}
	}

	vehiclesCollection := database.GetCollection("vehicles")
	count, err := vehiclesCollection.CountDocuments(ctx, bson.M{
		"tenantid":          tenantID,
		"primaryidentifier": vehicleID,
	})
	if err != nil {
		return false, err
	}

	if vehicleExistenceCache != nil {
		value := "N"
		if count > 0 {
			value = "Y"
		}
		vehicleExistenceCache.Set(ctx, cacheKey, value)
	}

	return count > 0, nil
}
