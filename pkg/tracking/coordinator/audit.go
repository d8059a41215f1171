package coordinator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fleetline/fleetline/pkg/elastic_client"
	"github.com/fleetline/fleetline/pkg/fleetdf"
)

type ingestAuditEvent struct {
	Timestamp time.Time `json:"@timestamp"`

	TenantID  string `json:"tenant"`
	VehicleID string `json:"vehicle"`
	Reason    string `json:"reason"`

	RecordedAt time.Time `json:"recordedAt"`
}

// auditRejection records a rejected fix so data quality regressions on device
// feeds are visible
func (c *Coordinator) auditRejection(fix *fleetdf.Fix, reason string) {
	currentTime := time.Now()
	yearNumber, weekNumber := currentTime.ISOWeek()
	indexName := fmt.Sprintf("fleetline-ingest-audit-%d-%d", yearNumber, weekNumber)

	auditEvent, _ := json.Marshal(ingestAuditEvent{
		Timestamp: currentTime,

		TenantID:  fix.TenantID,
		VehicleID: fix.VehicleID,
		Reason:    reason,

		RecordedAt: fix.RecordedAt,
	})

	elastic_client.IndexRequest(indexName, bytes.NewReader(auditEvent))
}
