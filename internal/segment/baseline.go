package segment

import (
	"time"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
)

// Baseline is the anti-rewind accounting for the banner countdown. Each
// slot's baseline ETA is set once at race start and only ever moves down;
// the displayed remaining time is measured against the race-start stamp, so
// it can never jump up when fresh oracle data arrives.
type Baseline struct {
	eta   map[engine.Slot]float64
	start time.Time
	ready bool
}

func NewBaseline() *Baseline {
	return &Baseline{eta: map[engine.Slot]float64{}}
}

// Init stamps the race start and records both slots' starting ETAs. Calling
// it on an already-initialized baseline is ignored: a continuation snapshot
// must not restart the countdown.
func (b *Baseline) Init(etas map[engine.Slot]float64, at time.Time) {
	if b.ready {
		return
	}
	for slot, eta := range etas {
		if eta < 0 {
			eta = 0
		}
		b.eta[slot] = eta
	}
	b.start = at
	b.ready = true
}

func (b *Baseline) Ready() bool { return b.ready }

// Lower shortens a slot's baseline ETA. Negative deltas are refused; the
// baseline never lengthens.
func (b *Baseline) Lower(slot engine.Slot, deltaMin float64) {
	if !b.ready || deltaMin <= 0 {
		return
	}
	eta := b.eta[slot] - deltaMin
	if eta < 0 {
		eta = 0
	}
	b.eta[slot] = eta
}

// Remaining is the baseline countdown at now: the (monotonically lowered)
// starting ETA minus minutes elapsed since race start, floored at zero.
func (b *Baseline) Remaining(slot engine.Slot, now time.Time) float64 {
	if !b.ready {
		return 0
	}
	elapsed := now.Sub(b.start).Minutes()
	if elapsed < 0 {
		elapsed = 0
	}
	rem := b.eta[slot] - elapsed
	if rem < 0 {
		rem = 0
	}
	return rem
}

// Reset discards the baseline at round end.
func (b *Baseline) Reset() {
	b.eta = map[engine.Slot]float64{}
	b.start = time.Time{}
	b.ready = false
}
