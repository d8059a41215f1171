package coordinator

import (
	"os"
	"strconv"
	"time"

	iso8601 "github.com/senseyeio/duration"
)

type Config struct {
	// Validation
	MaxFutureSkew time.Duration
	MaxFixAge     time.Duration

	// Geofence classification
	AccuracyCeilingM float64

	// Per-vehicle queue depth, keep-newest on overflow
	QueueDepth int

	// I/O deadlines
	StoreWriteTimeout time.Duration
	LogWriteTimeout   time.Duration
	PublishTimeout    time.Duration

	// Proximity evaluation is skipped with a warning when the registry
	// snapshot is older than this. Zero disables the check.
	MaxSnapshotAge time.Duration
}

var defaultConfig = Config{
	MaxFutureSkew:     30 * time.Second,
	MaxFixAge:         24 * time.Hour,
	AccuracyCeilingM:  150,
	QueueDepth:        64,
	StoreWriteTimeout: 200 * time.Millisecond,
	LogWriteTimeout:   500 * time.Millisecond,
	PublishTimeout:    100 * time.Millisecond,
	MaxSnapshotAge:    0,
}

// GetConfig returns the ingestion configuration from environment variables or
// defaults. Windows are ISO8601 durations, eg. PT24H.
func GetConfig() Config {
	config := defaultConfig

	if val := os.Getenv("FLEETLINE_TRACKING_MAX_FUTURE_SKEW"); val != "" {
		if parsed, err := parseISODuration(val); err == nil {
			config.MaxFutureSkew = parsed
		}
	}

	if val := os.Getenv("FLEETLINE_TRACKING_MAX_FIX_AGE"); val != "" {
		if parsed, err := parseISODuration(val); err == nil {
			config.MaxFixAge = parsed
		}
	}

	if val := os.Getenv("FLEETLINE_TRACKING_ACCURACY_CEILING_METERS"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.AccuracyCeilingM = parsed
		}
	}

	if val := os.Getenv("FLEETLINE_TRACKING_QUEUE_DEPTH"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			config.QueueDepth = parsed
		}
	}

	if val := os.Getenv("FLEETLINE_TRACKING_MAX_SNAPSHOT_AGE"); val != "" {
		if parsed, err := parseISODuration(val); err == nil {
			config.MaxSnapshotAge = parsed
		}
	}

	return config
}

func parseISODuration(value string) (time.Duration, error) {
	isoDuration, err := iso8601.ParseISO8601(value)
	if err != nil {
		return 0, err
	}

	now := time.Now()

	return isoDuration.Shift(now).Sub(now), nil
}
