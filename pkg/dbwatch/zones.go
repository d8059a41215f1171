package dbwatch

import (
	"context"

	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/redis_client"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// RegistryRefreshChannel carries a nudge to every running tracker that the
// zone collections changed and the in-memory registry should reload
const RegistryRefreshChannel = "fleetline:registry-refresh"

type ZonesWatch struct {
	Collection string
}

func NewZonesWatch(collection string) *ZonesWatch {
	return &ZonesWatch{Collection: collection}
}

func (w *ZonesWatch) Run() {
	log.Info().Str("collection", w.Collection).Msg("Starting dbwatch on collection")

	collection := database.GetCollection(w.Collection)
	matchPipeline := bson.D{
		{
			Key: "$match", Value: bson.D{
				{Key: "operationType", Value: bson.D{
					{Key: "$in", Value: bson.A{"insert", "update", "replace", "delete"}},
				}},
			},
		},
	}
	stream, err := collection.Watch(context.Background(), mongo.Pipeline{matchPipeline})
	if err != nil {
		panic(err)
	}

	defer stream.Close(context.Background())

	for stream.Next(context.Background()) {
		var data struct {
			OperationType string `bson:"operationType"`
		}
		if err := stream.Decode(&data); err != nil {
			log.Error().Err(err).Msg("Failed to decode change event")
			continue
		}

		log.Info().Str("collection", w.Collection).Str("operation", data.OperationType).Msg("Zone collection changed")

		if err := redis_client.Client.Publish(context.Background(), RegistryRefreshChannel, w.Collection).Err(); err != nil {
			log.Error().Err(err).Msg("Failed to publish registry refresh")
		}
	}
}
