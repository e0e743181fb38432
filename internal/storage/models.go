package storage

import "time"

// SampleRecord is one row of the append-only metrics table.
type SampleRecord struct {
	ID     int64     `json:"-"`
	TSUTC  time.Time `json:"timestamp"`
	CPU    float64   `json:"cpu"`
	Memory float64   `json:"memory"`
}

// AlertRecord is one row of the append-only alerts table. Type is either
// "CPU" or "Memory".
type AlertRecord struct {
	ID        int64     `json:"-"`
	TSUTC     time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
}
