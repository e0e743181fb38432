package metrics

import (
	"fmt"
	"time"

	"codexray-backend/internal/storage"
)

// Sample is one point-in-time measurement of host resource usage, both
// values in percent.
type Sample struct {
	TS     time.Time
	CPU    float64
	Memory float64
}

// Evaluate compares a sample against one snapshot of the limits and returns
// the alerts it produces: zero, one, or two. Comparison is strictly greater
// than. There is no deduplication; every breaching sample alerts again.
func Evaluate(sample Sample, limits Limits) []storage.AlertRecord {
	alerts := []storage.AlertRecord{}
	if sample.CPU > limits.CPU {
		alerts = append(alerts, storage.AlertRecord{
			TSUTC:     sample.TS,
			Type:      "CPU",
			Value:     sample.CPU,
			Threshold: limits.CPU,
			Message:   fmt.Sprintf("CPU usage exceeded threshold: %.2f%%", sample.CPU),
		})
	}
	if sample.Memory > limits.Memory {
		alerts = append(alerts, storage.AlertRecord{
			TSUTC:     sample.TS,
			Type:      "Memory",
			Value:     sample.Memory,
			Threshold: limits.Memory,
			Message:   fmt.Sprintf("Memory usage exceeded threshold: %.2f%%", sample.Memory),
		})
	}
	return alerts
}
