package gtfsrt

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/adjust/rmq/v5"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"
)

const staleRecordCutoff = 20 * time.Minute

// Poller fetches a GTFS-RT VehiclePositions feed on an interval and turns
// every positioned entity into a fix on the ingest queue
type Poller struct {
	URL      string
	TenantID string

	Interval time.Duration

	queue rmq.Queue
}

func (p *Poller) SetupQueue(queue rmq.Queue) {
	p.queue = queue
}

func (p *Poller) Run() {
	for {
		if err := p.pollOnce(); err != nil {
			log.Error().Err(err).Str("url", p.URL).Msg("Failed to poll feed")
		}

		time.Sleep(p.Interval)
	}
}

func (p *Poller) pollOnce() error {
	response, err := http.Get(p.URL)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	feed := gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, &feed); err != nil {
		return err
	}

	submitted := 0
	skipped := 0

	for _, entity := range feed.Entity {
		vehiclePosition := entity.GetVehicle()
		if vehiclePosition == nil || vehiclePosition.Position == nil {
			continue
		}

		vehicleID := vehiclePosition.GetVehicle().GetId()
		if vehicleID == "" {
			continue
		}

		recordedAt := time.Now()
		if vehiclePosition.Timestamp != nil {
			recordedAt = time.Unix(int64(*vehiclePosition.Timestamp), 0)
		}

		// Skip any records that haven't been updated recently
		if time.Now().UTC().Sub(recordedAt) > staleRecordCutoff {
			skipped += 1
			continue
		}

		fix := fleetdf.Fix{
			TenantID:  p.TenantID,
			VehicleID: vehicleID,

			Location: fleetdf.Coordinates{
				Latitude:  float64(vehiclePosition.Position.GetLatitude()),
				Longitude: float64(vehiclePosition.Position.GetLongitude()),
			},

			RecordedAt: recordedAt,
		}

		if vehiclePosition.Position.Speed != nil {
			// GTFS-RT reports metres per second
			speedKmh := float64(vehiclePosition.Position.GetSpeed()) * 3.6
			fix.SpeedKmh = &speedKmh
		}
		if vehiclePosition.Position.Bearing != nil {
			heading := float64(vehiclePosition.Position.GetBearing())
			fix.HeadingDeg = &heading
		}

		fixJSON, _ := json.Marshal(fix)
		p.queue.PublishBytes(fixJSON)

		submitted += 1
	}

	log.Info().
		Int("submitted", submitted).
		Int("skipped", skipped).
		Int("total", len(feed.Entity)).
		Msg("Submitted feed fixes")

	return nil
}
