package coordinator

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/rs/zerolog/log"
)

const FixQueueName = "fixes-queue"

// FixBatchConsumer feeds queued device fixes into the coordinator
type FixBatchConsumer struct {
	coordinator *Coordinator
}

func NewFixBatchConsumer(coordinator *Coordinator) *FixBatchConsumer {
	return &FixBatchConsumer{coordinator: coordinator}
}

func (c *FixBatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	for _, payload := range payloads {
		var fix *fleetdf.Fix
		if err := json.Unmarshal([]byte(payload), &fix); err != nil {
			log.Error().Err(err).Msg("Failed to decode queued fix")
			continue
		}

		c.coordinator.IngestAsync(fix)
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to ack fix batch")
		}
	}
}
