package raceclock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Session bundles the two periodic drivers of a race: the 1 Hz banner tick
// and the oracle rebase timer. A room owns at most one; starting a new
// session is the only way a previous one's timers survive being replaced,
// so callers Stop the old handle first. Stop is idempotent.
type Session struct {
	stop     chan struct{}
	stopOnce sync.Once
}

// TickInterval is the banner refresh rate.
const TickInterval = 1 * time.Second

// StartSession launches the ticker goroutine. onTick fires every second and
// onRebase every rebaseEvery; both are expected to be cheap posts into the
// owning actor's inbox, never blocking work.
func StartSession(clock clockwork.Clock, rebaseEvery time.Duration, onTick, onRebase func()) *Session {
	s := &Session{stop: make(chan struct{})}

	go func() {
		tick := clock.NewTicker(TickInterval)
		defer tick.Stop()
		rebase := clock.NewTicker(rebaseEvery)
		defer rebase.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-tick.Chan():
				onTick()
			case <-rebase.Chan():
				onRebase()
			}
		}
	}()

	return s
}

// Stop cancels both timers. Safe to call any number of times, including on
// a session that was already replaced.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
