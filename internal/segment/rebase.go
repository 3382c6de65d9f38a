package segment

import (
	"time"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/flight"
)

// MaxUpToleranceMin is the only amount by which a rebase may ever lengthen
// the displayed remaining time.
const MaxUpToleranceMin = 2.0

// Update is one normalized oracle refresh for a slot.
type Update struct {
	Pos        *flight.Point
	ETAMinutes float64
}

// Result reports what a rebase did, for logging and the banner.
type Result struct {
	AdjustedETA float64
	LoweredBy   float64
}

// Rebaser folds oracle refreshes into the segment model without visual
// discontinuity: the on-screen position is the new anchor point, and the
// fresh ETA is clamped so the countdown never gains more than the tolerance.
type Rebaser struct {
	Model    *Model
	Baseline *Baseline
}

// Ingest applies one update for a slot. fl is the round's flight object,
// mutated in place for bookkeeping only; the visual anchor stays wherever
// interpolation currently has the object.
func (r *Rebaser) Ingest(slot engine.Slot, fl *flight.Flight, upd Update, now time.Time) Result {
	if r.Model.Landed(slot) {
		return Result{}
	}

	// The point that must not move.
	p := r.Model.Position(slot, now)

	if upd.Pos != nil {
		fl.SetPos(*upd.Pos)
		r.Model.MarkFix(slot, *upd.Pos)
	}
	fl.SetETA(upd.ETAMinutes)

	expected := r.Baseline.Remaining(slot, now)

	apiETA := upd.ETAMinutes
	if apiETA < 0 {
		apiETA = 0
	}
	adjusted := apiETA
	if limit := expected + MaxUpToleranceMin; adjusted > limit {
		adjusted = limit
	}

	r.Model.Anchor(slot, p, adjusted, now)

	res := Result{AdjustedETA: adjusted}
	if delta := expected - adjusted; delta > 0 {
		r.Baseline.Lower(slot, delta)
		res.LoweredBy = delta
	}
	return res
}
