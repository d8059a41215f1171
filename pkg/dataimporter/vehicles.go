package dataimporter

import (
	"context"
	"io"
	"time"

	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type vehicleRecord struct {
	VehicleID    string `csv:"vehicle_id"`
	TenantID     string `csv:"tenant_id"`
	Registration string `csv:"registration"`
}

// ImportVehicles seeds the vehicle registry used to validate incoming fixes
func ImportVehicles(reader io.Reader) error {
	var records []vehicleRecord
	if err := gocsv.Unmarshal(reader, &records); err != nil {
		return err
	}

	vehiclesCollection := database.GetCollection("vehicles")
	opts := options.Update().SetUpsert(true)

	imported := 0

	for _, record := range records {
		if record.VehicleID == "" || record.TenantID == "" {
			continue
		}

		vehicle := fleetdf.Vehicle{
			PrimaryIdentifier: record.VehicleID,
			TenantID:          record.TenantID,
			Registration:      record.Registration,
			Active:            true,
			CreationDateTime:  time.Now(),
		}

		_, err := vehiclesCollection.UpdateOne(context.Background(),
			bson.M{"primaryidentifier": vehicle.PrimaryIdentifier, "tenantid": vehicle.TenantID},
			bson.M{"$setOnInsert": vehicle}, opts)
		if err != nil {
			return err
		}

		imported += 1
	}

	log.Info().Int("imported", imported).Msg("Imported vehicles")

	return nil
}
