package raceclock

import (
	"fmt"
	"math"
	"time"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/segment"
)

const (
	// LeaderLock is how long a chosen leader holds the banner even if the
	// raw comparison flips, so near-ties don't flicker.
	LeaderLock = 2 * time.Second

	// LandedDistanceKm is the distance half of the landing gate.
	LandedDistanceKm = 3.0

	landedFrac = 0.999

	// degradedAfter is how many consecutive oracle failures flip the
	// connectivity indicator.
	degradedAfter = 3
)

// SlotView is the derived display for one slot at one tick.
type SlotView struct {
	Remaining float64 `json:"remaining_min"`
	Countdown string  `json:"countdown"`
	Progress  float64 `json:"progress"`
	Landed    bool    `json:"landed"`
}

// View is the full 1 Hz banner frame.
type View struct {
	Slots         map[engine.Slot]SlotView `json:"slots"`
	Leader        engine.Slot              `json:"leader,omitempty"`
	NextUpdateSec int                      `json:"next_update_sec"`
	Degraded      bool                     `json:"degraded"`
	Resolvable    bool                     `json:"resolvable"`
}

// Banner folds both slots' motion into the human display: countdowns,
// leader with hysteresis, landing latches, the next-update countdown, and
// the degraded-connectivity flag. Single-goroutine use only.
type Banner struct {
	model    *segment.Model
	baseline *segment.Baseline

	leader      engine.Slot
	leaderSince time.Time

	landed   map[engine.Slot]bool
	failures int
	degraded bool

	nextUpdate time.Time
}

func NewBanner(model *segment.Model, baseline *segment.Baseline) *Banner {
	return &Banner{
		model:    model,
		baseline: baseline,
		landed:   map[engine.Slot]bool{},
	}
}

// Tick computes the current frame and returns any slots that newly landed
// this tick. Landing latches: a slot lands at most once.
func (b *Banner) Tick(now time.Time) (View, []engine.Slot) {
	var newlyLanded []engine.Slot
	slots := map[engine.Slot]SlotView{}

	for _, slot := range []engine.Slot{engine.SlotA, engine.SlotB} {
		if !b.landed[slot] && b.landingGate(slot, now) {
			b.landed[slot] = true
			b.model.Land(slot)
			newlyLanded = append(newlyLanded, slot)
		}

		rem := b.DisplayRemaining(slot, now)
		frac, _ := b.model.Remaining(slot, now)
		slots[slot] = SlotView{
			Remaining: rem,
			Countdown: FormatCountdown(rem),
			Progress:  frac,
			Landed:    b.landed[slot],
		}
	}

	b.updateLeader(slots, now)

	nextSec := 0
	if !b.nextUpdate.IsZero() {
		if d := b.nextUpdate.Sub(now); d > 0 {
			nextSec = int(d.Round(time.Second).Seconds())
		}
	}

	return View{
		Slots:         slots,
		Leader:        b.leader,
		NextUpdateSec: nextSec,
		Degraded:      b.degraded,
		Resolvable:    b.landed[engine.SlotA] || b.landed[engine.SlotB],
	}, newlyLanded
}

// DisplayRemaining is the conservative countdown: never shorter than either
// the interpolated remaining or the baseline accounting, so the banner and
// the animated position cannot disagree about whether the object is down.
func (b *Banner) DisplayRemaining(slot engine.Slot, now time.Time) float64 {
	if b.landed[slot] {
		return 0
	}
	_, seg := b.model.Remaining(slot, now)
	base := b.baseline.Remaining(slot, now)
	return math.Max(seg, base)
}

// landingGate requires interpolation to be done AND, when a real position
// fix has ever been seen, the object to be within the distance threshold.
// Time alone can hit 100% before the oracle confirms arrival. The distance
// check needs a current fix: once the connection is degraded the last fix is
// stale and time alone decides, otherwise a dead oracle would hold the gate
// shut forever.
func (b *Banner) landingGate(slot engine.Slot, now time.Time) bool {
	frac, _ := b.model.Remaining(slot, now)
	if frac < landedFrac {
		return false
	}
	if b.baseline.Ready() && b.baseline.Remaining(slot, now) > 0 {
		return false
	}
	if !b.degraded && b.model.HasFix(slot) && b.model.FixDistanceKm(slot) >= LandedDistanceKm {
		return false
	}
	return true
}

func (b *Banner) updateLeader(slots map[engine.Slot]SlotView, now time.Time) {
	raw := engine.SlotA
	if slots[engine.SlotB].Remaining < slots[engine.SlotA].Remaining {
		raw = engine.SlotB
	}

	if b.leader == "" {
		b.leader = raw
		b.leaderSince = now
		return
	}
	if raw != b.leader && now.Sub(b.leaderSince) >= LeaderLock {
		b.leader = raw
		b.leaderSince = now
	}
}

// Landed reports the latched flag for a slot.
func (b *Banner) Landed(slot engine.Slot) bool { return b.landed[slot] }

// Obs snapshots what the resolver needs.
func (b *Banner) Obs(now time.Time) engine.ResolveObs {
	return engine.ResolveObs{
		LandedA:    b.landed[engine.SlotA],
		LandedB:    b.landed[engine.SlotB],
		RemainingA: b.DisplayRemaining(engine.SlotA, now),
		RemainingB: b.DisplayRemaining(engine.SlotB, now),
	}
}

// Degraded reports the connectivity indicator without advancing the banner.
func (b *Banner) Degraded() bool { return b.degraded }

// RecordFailure counts a failed oracle refresh; enough in a row flip the
// degraded indicator.
func (b *Banner) RecordFailure() {
	b.failures++
	if b.failures >= degradedAfter {
		b.degraded = true
	}
}

// RecordSuccess clears the failure streak and the indicator.
func (b *Banner) RecordSuccess() {
	b.failures = 0
	b.degraded = false
}

// SetNextUpdate tells the banner when the next oracle refresh is due.
func (b *Banner) SetNextUpdate(at time.Time) { b.nextUpdate = at }

// Reset clears all per-round banner state.
func (b *Banner) Reset() {
	b.leader = ""
	b.leaderSince = time.Time{}
	b.landed = map[engine.Slot]bool{}
	b.failures = 0
	b.degraded = false
	b.nextUpdate = time.Time{}
}

// FormatCountdown renders minutes as "4m 02s"; zero or less is "landed".
func FormatCountdown(minutes float64) string {
	if minutes <= 0 {
		return "landed"
	}
	total := int(math.Ceil(minutes * 60))
	return fmt.Sprintf("%dm %02ds", total/60, total%60)
}
