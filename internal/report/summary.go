package report

import (
	"math"

	"codexray-backend/internal/storage"
)

const lastAlertCount = 10

type Breakdown struct {
	CPU    int `json:"cpu"`
	Memory int `json:"memory"`
}

type AlertLine struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type Averages struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
}

type Summary struct {
	TotalAlerts int         `json:"totalAlerts"`
	Breakdown   Breakdown   `json:"breakdown"`
	LastAlerts  []AlertLine `json:"lastAlerts"`
	Averages    Averages    `json:"averages"`
}

// Build derives a summary from already-fetched rows: alerts newest-first and
// the recent samples window. With no samples the averages are zero, not NaN.
func Build(alerts []storage.AlertRecord, samples []storage.SampleRecord) Summary {
	summary := Summary{LastAlerts: []AlertLine{}}
	summary.TotalAlerts = len(alerts)
	for _, alert := range alerts {
		switch alert.Type {
		case "CPU":
			summary.Breakdown.CPU++
		case "Memory":
			summary.Breakdown.Memory++
		}
	}
	for i, alert := range alerts {
		if i == lastAlertCount {
			break
		}
		summary.LastAlerts = append(summary.LastAlerts, AlertLine{
			Type:      alert.Type,
			Timestamp: alert.TSUTC.Format("2006-01-02 15:04:05"),
			Message:   alert.Message,
		})
	}
	if len(samples) > 0 {
		var cpuSum, memSum float64
		for _, sample := range samples {
			cpuSum += sample.CPU
			memSum += sample.Memory
		}
		n := float64(len(samples))
		summary.Averages.CPU = round2(cpuSum / n)
		summary.Averages.Memory = round2(memSum / n)
	}
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
