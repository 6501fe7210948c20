package monitoring

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats is a snapshot of this process's resource usage.
type ProcessStats struct {
	RSSBytes   uint64    `json:"rssBytes"`
	CPUPercent float64   `json:"cpuPercent"`
	Goroutines int       `json:"goroutines"`
	SampledAt  time.Time `json:"sampledAt"`
}

// StatUpdater periodically samples process statistics so the health endpoint
// can answer without touching the OS.
type StatUpdater struct {
	proc     *process.Process
	interval time.Duration

	mu     sync.RWMutex
	latest ProcessStats

	done     chan struct{}
	stopOnce sync.Once
}

// NewStatUpdater creates a StatUpdater for the current process.
func NewStatUpdater(interval time.Duration) (*StatUpdater, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to open current process: %w", err)
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &StatUpdater{proc: proc, interval: interval, done: make(chan struct{})}, nil
}

// Run starts the periodic updates.
func (su *StatUpdater) Run() {
	log.Info().Dur("interval", su.interval).Msg("Starting background stat updater...")
	ticker := time.NewTicker(su.interval)
	defer ticker.Stop()

	// Run once immediately on start
	su.update()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-ticker.C:
			su.update()
		}
	}
}

// Stop halts the periodic updates.
func (su *StatUpdater) Stop() {
	su.stopOnce.Do(func() { close(su.done) })
}

// Latest returns the most recent sample, taking one if none exists yet.
func (su *StatUpdater) Latest() ProcessStats {
	su.mu.RLock()
	latest := su.latest
	su.mu.RUnlock()
	if latest.SampledAt.IsZero() {
		return su.update()
	}
	return latest
}

func (su *StatUpdater) update() ProcessStats {
	stats := ProcessStats{Goroutines: runtime.NumGoroutine(), SampledAt: time.Now().UTC()}

	if mem, err := su.proc.MemoryInfo(); err == nil {
		stats.RSSBytes = mem.RSS
	} else {
		log.Warn().Err(err).Msg("StatUpdater: could not read memory info")
	}
	if cpu, err := su.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	} else {
		log.Warn().Err(err).Msg("StatUpdater: could not read CPU usage")
	}

	su.mu.Lock()
	su.latest = stats
	su.mu.Unlock()
	return stats
}
