package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"courier/observability"
)

// SystemMonitorWorker samples the process's own CPU and memory figures and
// publishes them to the monitor for the stats endpoint.
type SystemMonitorWorker struct {
	log      *slog.Logger
	interval time.Duration
	monitor  *observability.Monitor
}

func NewSystemMonitorWorker(log *slog.Logger, interval time.Duration,
	monitor *observability.Monitor) *SystemMonitorWorker {
	return &SystemMonitorWorker{log: log, interval: interval, monitor: monitor}
}

func (w *SystemMonitorWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.monitor.SetProcessStats(cpu, rss)
			w.log.Debug("process stats", "cpu_percent", cpu, "rss_bytes", rss)
		}
	}
}

// selfStats retrieves memory and CPU figures for the given process.
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
