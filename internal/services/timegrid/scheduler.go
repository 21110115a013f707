package timegrid

import (
	"sync"
	"time"

	drepo "ChochScan/internal/domain/repository"
)

// Scheduler decides which timeframes have a freshly closed candle that
// has not been scanned yet. Missed ticks coalesce: no matter how late a
// tick arrives, each closed candle triggers at most one scan.
type Scheduler struct {
	mu          sync.Mutex
	timeframes  []drepo.Timeframe
	grace       time.Duration
	lastScanned map[drepo.Timeframe]time.Time
}

// DefaultGrace gives the exchange time to write the closed candle
// through before we fetch it.
const DefaultGrace = 30 * time.Second

// NewScheduler creates a scheduler over the given timeframes.
func NewScheduler(timeframes []drepo.Timeframe, grace time.Duration) *Scheduler {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Scheduler{
		timeframes:  timeframes,
		grace:       grace,
		lastScanned: make(map[drepo.Timeframe]time.Time, len(timeframes)),
	}
}

// Scannable returns the timeframes whose latest close is newer than the
// last scanned close and older than now by at least the grace period.
// Returned timeframes are immediately marked scanned.
func (s *Scheduler) Scannable(now time.Time) []drepo.Timeframe {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []drepo.Timeframe
	for _, tf := range s.timeframes {
		close := LastClose(tf, now)
		if !close.After(s.lastScanned[tf]) {
			continue
		}
		if now.Before(close.Add(s.grace)) {
			continue
		}
		s.lastScanned[tf] = close
		out = append(out, tf)
	}
	return out
}

// LastScanned reports the close time of the last scan for tf.
func (s *Scheduler) LastScanned(tf drepo.Timeframe) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScanned[tf]
}

// Timeframes returns the configured scan set.
func (s *Scheduler) Timeframes() []drepo.Timeframe {
	return s.timeframes
}
