package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes() {
	createTrackingIndexes()
	createAlertIndexes()
	createZoneIndexes()
	createFleetIndexes()
}

func createTrackingIndexes() {
	// Vehicle Tracks
	vehicleTracksCollection := GetCollection("vehicle_tracks")
	_, err := vehicleTracksCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "tenantid", Value: 1},
				{Key: "vehicleid", Value: 1},
				{Key: "recordedat", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "recordedat", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(24 * 3600), // Expire after 24 hours
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createAlertIndexes() {
	// Alerts
	alertsCollection := GetCollection("alerts")
	_, err := alertsCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			// Idempotency key for log writes
			Keys: bson.D{
				{Key: "vehicleid", Value: 1},
				{Key: "zoneid", Value: 1},
				{Key: "accidentzoneid", Value: 1},
				{Key: "transitiondatetime", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "tenantid", Value: 1},
				{Key: "emitteddatetime", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "driverid", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "severity", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "emitteddatetime", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 3600), // Expire after 90 days
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createZoneIndexes() {
	// Zones
	zonesCollection := GetCollection("zones")
	_, err := zonesCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "tenantid", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	// Accident Zones
	accidentZonesCollection := GetCollection("accident_zones")
	_, err = accidentZonesCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "primaryidentifier", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}

func createFleetIndexes() {
	// Vehicles
	vehiclesCollection := GetCollection("vehicles")
	_, err := vehiclesCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "tenantid", Value: 1},
				{Key: "primaryidentifier", Value: 1},
			},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}

	// UserPushNotificationTarget
	userPushNotificationTargetCollection := GetCollection("user_push_notification_target")
	_, err = userPushNotificationTargetCollection.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userid", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "tenantid", Value: 1}},
		},
	}, options.CreateIndexes())
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
