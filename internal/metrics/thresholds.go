package metrics

import "sync"

// Limits is one consistent snapshot of the alert thresholds.
type Limits struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
}

// DefaultLimits matches the thresholds the service ships with.
func DefaultLimits() Limits {
	return Limits{CPU: 80.0, Memory: 75.0}
}

// Thresholds guards the shared threshold configuration. The collector reads
// it once per cycle; the HTTP layer reads and writes it on demand.
type Thresholds struct {
	mu     sync.Mutex
	limits Limits
}

func NewThresholds(limits Limits) *Thresholds {
	return &Thresholds{limits: limits}
}

func (t *Thresholds) Get() Limits {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limits
}

// Update applies a partial update: a nil field leaves the current value
// unchanged. Negative or zero thresholds are legal and simply make every
// future sample alert.
func (t *Thresholds) Update(cpu, memory *float64) Limits {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cpu != nil {
		t.limits.CPU = *cpu
	}
	if memory != nil {
		t.limits.Memory = *memory
	}
	return t.limits
}
