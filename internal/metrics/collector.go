package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"codexray-backend/internal/storage"
)

// SampleStore is the slice of the repository the collector writes through.
type SampleStore interface {
	InsertSample(ctx context.Context, rec storage.SampleRecord) error
	InsertAlert(ctx context.Context, rec storage.AlertRecord) error
}

// AlertPublisher receives every alert the collector stores. May be nil.
type AlertPublisher interface {
	PublishAlert(alert storage.AlertRecord) error
}

const writeTimeout = 10 * time.Second

// Collector runs the background sampling loop: measure, persist, evaluate
// against one threshold snapshot, persist alerts. It runs unattended
// indefinitely; a failed cycle is logged and the loop keeps going.
type Collector struct {
	probe      Probe
	repo       SampleStore
	thresholds *Thresholds
	bus        AlertPublisher
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewCollector(probe Probe, repo SampleStore, thresholds *Thresholds, bus AlertPublisher, logger *slog.Logger) *Collector {
	return &Collector{
		probe:      probe,
		repo:       repo,
		thresholds: thresholds,
		bus:        bus,
		logger:     logger,
	}
}

// Start launches the loop: one cycle immediately, then one per interval.
// A second Start while running is a no-op.
func (c *Collector) Start(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(interval, c.stop, c.done)
	c.logger.Info("metric collection started", slog.Duration("interval", interval))
}

// Stop asks the loop to exit and waits for it. The in-flight cycle is
// allowed to complete; no further cycle is scheduled. Stopping a stopped
// collector is a no-op.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	close(c.stop)
	<-c.done
	c.running = false
	c.logger.Info("metric collection stopped")
}

// Running reports whether the loop is active.
func (c *Collector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Collector) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	c.cycle()
	for {
		select {
		case <-ticker.C:
			c.cycle()
		case <-stop:
			return
		}
	}
}

func (c *Collector) cycle() {
	// No timeout around the measurement itself; if the OS call hangs, the
	// loop hangs with it.
	sample, err := c.probe.Measure(context.Background())
	if err != nil {
		c.logger.Error("measurement failed, skipping cycle", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.repo.InsertSample(ctx, storage.SampleRecord{
		TSUTC:  sample.TS,
		CPU:    sample.CPU,
		Memory: sample.Memory,
	}); err != nil {
		c.logger.Error("failed to store sample", slog.String("error", err.Error()))
		return
	}

	// One snapshot per cycle: both comparisons below see the same limits
	// even if they are updated mid-cycle.
	limits := c.thresholds.Get()
	for _, alert := range Evaluate(sample, limits) {
		if err := c.repo.InsertAlert(ctx, alert); err != nil {
			c.logger.Error("failed to store alert", slog.String("error", err.Error()))
			continue
		}
		if c.bus != nil {
			if err := c.bus.PublishAlert(alert); err != nil {
				c.logger.Error("failed to publish alert", slog.String("error", err.Error()))
			}
		}
	}
}
