package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*HeartbeatWorker)(nil)

// Gauges exposes the live connection and room counts of the registry.
type Gauges interface {
	Gauges() (connections, rooms int)
}

// HeartbeatWorker logs one health line per interval: process CPU and
// RSS, registry gauges and the telemetry counters. It is the relay's
// whole observability surface besides structured logs.
type HeartbeatWorker struct {
	log      *slog.Logger
	gauges   Gauges
	counter  *event.Counter
	interval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, gauges Gauges,
	counter *event.Counter, interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, gauges: gauges, counter: counter, interval: interval}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			connections, rooms := w.gauges.Gauges()
			w.log.Info("Heartbeat",
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"connections", connections,
				"rooms", rooms,
				"delivered", w.counter.Get(event.MessageDeliveredType),
				"dropped", w.counter.Get(event.DeliveryDroppedType),
				"worker_restarts", w.counter.Get(event.RestartedAfterPanicType),
			)
		}
	}
}

// selfStats retrieves memory and CPU usage of the current process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
