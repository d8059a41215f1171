package alertlog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/cenkalti/backoff/v4"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/rs/zerolog/log"
)

var ErrAlertNotFound = errors.New("alert not found")

// RetryBatchConsumer drains alertlog-retry, re-attempting each write with
// exponential backoff before giving the delivery back to the queue
type RetryBatchConsumer struct {
	log *Log
}

func NewRetryBatchConsumer(alertLog *Log) *RetryBatchConsumer {
	return &RetryBatchConsumer{log: alertLog}
}

func (c *RetryBatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	failed := false

	for _, payload := range payloads {
		var alert *fleetdf.Alert
		if err := json.Unmarshal([]byte(payload), &alert); err != nil {
			log.Error().Err(err).Msg("Failed to decode alert retry payload")
			continue
		}

		writeBackoff := backoff.NewExponentialBackOff()
		writeBackoff.MaxElapsedTime = 30 * time.Second

		err := backoff.Retry(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			return c.log.Write(ctx, alert)
		}, writeBackoff)

		if err != nil {
			log.Error().Err(err).Str("alert", alert.PrimaryIdentifier).Msg("Alert log retry exhausted")
			failed = true
		}
	}

	if failed {
		if rejectErrors := batch.Reject(); len(rejectErrors) > 0 {
			for _, err := range rejectErrors {
				log.Error().Err(err).Msg("Failed to reject alert retry batch")
			}
		}
		return
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to ack alert retry batch")
		}
	}
}
