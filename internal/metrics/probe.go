package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Probe measures current host resource usage.
type Probe interface {
	Measure(ctx context.Context) (Sample, error)
}

// HostProbe reads CPU and memory utilization from the OS. The CPU reading
// is a one-second window average, so Measure blocks for about a second.
type HostProbe struct{}

func (HostProbe) Measure(ctx context.Context) (Sample, error) {
	percents, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return Sample{}, err
	}
	if len(percents) == 0 {
		return Sample{}, errors.New("no cpu reading")
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		TS:     time.Now().UTC(),
		CPU:    percents[0],
		Memory: vm.UsedPercent,
	}, nil
}
