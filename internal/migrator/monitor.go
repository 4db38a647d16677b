package migrator

import (
	"sync"
	"time"

	"github.com/deadpool-game/migrator/internal/adapter"
	"github.com/deadpool-game/migrator/internal/domain"
)

// Monitor collects per-player timings and throttle events across a run.
// Worker tasks and the retry policy feed it concurrently.
type Monitor struct {
	clock adapter.Clock

	mu          sync.Mutex
	start       time.Time
	playerTimes []time.Duration
	errorCount  int
	throttles   int
}

// NewMonitor starts a monitor clocked from now
func NewMonitor(clock adapter.Clock) *Monitor {
	return &Monitor{clock: clock, start: clock.Now()}
}

// RecordPlayer records one finished player migration
func (m *Monitor) RecordPlayer(duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerTimes = append(m.playerTimes, duration)
	if !success {
		m.errorCount++
	}
}

// RecordThrottle counts one throttled store call; wired into the retry
// policy's OnThrottle hook
func (m *Monitor) RecordThrottle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.throttles++
}

// Report summarizes the run so far
func (m *Monitor) Report() domain.PerformanceReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := m.clock.Since(m.start)
	report := domain.PerformanceReport{
		TotalDuration:    elapsed,
		PlayersProcessed: len(m.playerTimes),
		ThrottleEvents:   m.throttles,
	}
	if len(m.playerTimes) > 0 {
		var total time.Duration
		for _, d := range m.playerTimes {
			total += d
		}
		report.AvgTimePerPlayer = total / time.Duration(len(m.playerTimes))
		report.ErrorRate = float64(m.errorCount) / float64(len(m.playerTimes))
	}
	if elapsed > 0 {
		report.PlayersPerMinute = float64(len(m.playerTimes)) / elapsed.Minutes()
	}
	return report
}
