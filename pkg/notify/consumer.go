package notify

import (
	"encoding/json"

	"github.com/adjust/rmq/v5"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/fleetline/fleetline/pkg/redis_client"
	"github.com/rs/zerolog/log"
)

const AlertQueueName = "alert-notify-queue"

// EnqueueAlert queues a logged alert for push delivery. Failures only cost the
// notification, never the alert itself.
func EnqueueAlert(alert *fleetdf.Alert) {
	alertQueue, err := redis_client.QueueConnection.OpenQueue(AlertQueueName)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open alert notify queue")
		return
	}

	alertJSON, _ := json.Marshal(alert)
	if err := alertQueue.PublishBytes(alertJSON); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue alert notification")
	}
}

type AlertBatchConsumer struct {
	pushManager *PushManager
}

func NewAlertBatchConsumer(pushManager *PushManager) *AlertBatchConsumer {
	return &AlertBatchConsumer{pushManager: pushManager}
}

func (c *AlertBatchConsumer) Consume(batch rmq.Deliveries) {
	payloads := batch.Payloads()

	for _, payload := range payloads {
		var alert *fleetdf.Alert
		if err := json.Unmarshal([]byte(payload), &alert); err != nil {
			log.Error().Err(err).Msg("Failed to decode queued alert")
			continue
		}

		if err := c.pushManager.SendAlertPush(alert); err != nil {
			log.Error().Err(err).Str("alert", alert.PrimaryIdentifier).Msg("Failed to deliver alert notification")
		}
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to ack alert notification batch")
		}
	}
}
