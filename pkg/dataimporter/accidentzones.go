package dataimporter

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/fleetline/fleetline/pkg/database"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/fleetline/fleetline/pkg/util"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// severityRadiusM maps a reported accident severity to the proximity radius
// around its location. Overridable per deployment through environment.
func severityRadiusM() map[fleetdf.AccidentSeverity]float64 {
	radii := map[fleetdf.AccidentSeverity]float64{
		fleetdf.AccidentSeverityLow:    150,
		fleetdf.AccidentSeverityMedium: 300,
		fleetdf.AccidentSeverityHigh:   500,
	}

	overrides := map[fleetdf.AccidentSeverity]string{
		fleetdf.AccidentSeverityLow:    "FLEETLINE_ACCIDENT_RADIUS_LOW",
		fleetdf.AccidentSeverityMedium: "FLEETLINE_ACCIDENT_RADIUS_MEDIUM",
		fleetdf.AccidentSeverityHigh:   "FLEETLINE_ACCIDENT_RADIUS_HIGH",
	}

	for severity, name := range overrides {
		if value := util.GetEnvironmentVariable(name, ""); value != "" {
			if radius, err := strconv.ParseFloat(value, 64); err == nil && radius > 0 {
				radii[severity] = radius
			}
		}
	}

	return radii
}

type accidentRecord struct {
	AccidentID string  `csv:"accident_id"`
	Latitude   float64 `csv:"latitude"`
	Longitude  float64 `csv:"longitude"`
	Severity   string  `csv:"severity"`
	Count      int     `csv:"accident_count"`
}

// ImportAccidentZones loads an accident dataset export and upserts each record
// into accident_zones
func ImportAccidentZones(reader io.Reader) error {
	// Allow us to ignore those naughty records that have missing columns
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		return r
	})

	var records []accidentRecord
	if err := gocsv.Unmarshal(reader, &records); err != nil {
		return err
	}

	radii := severityRadiusM()

	accidentZonesCollection := database.GetCollection("accident_zones")
	opts := options.Update().SetUpsert(true)

	imported := 0
	skipped := 0

	for _, record := range records {
		severity := fleetdf.AccidentSeverity(record.Severity)

		centre := fleetdf.Coordinates{Latitude: record.Latitude, Longitude: record.Longitude}

		if record.AccidentID == "" || !centre.Valid() || radii[severity] == 0 {
			skipped += 1
			continue
		}

		count := record.Count
		if count <= 0 {
			count = 1
		}

		accidentZone := fleetdf.AccidentZone{
			PrimaryIdentifier: record.AccidentID,
			Centre:            centre,
			Severity:          severity,
			AccidentCount:     count,
			RadiusM:           radii[severity],

			ModificationDateTime: time.Now(),
		}

		_, err := accidentZonesCollection.UpdateOne(context.Background(),
			bson.M{"primaryidentifier": accidentZone.PrimaryIdentifier},
			bson.M{"$set": accidentZone}, opts)
		if err != nil {
			return err
		}

		imported += 1
	}

	log.Info().
		Int("imported", imported).
		Int("skipped", skipped).
		Msg("Imported accident zones")

	return nil
}
