package segment

import (
	"time"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/flight"
)

const (
	// DurationFloorMin keeps the interpolation divisor well-defined.
	DurationFloorMin = 0.01

	// A track snaps to its destination once interpolation is this close.
	landedFrac   = 0.999
	landedEpsMin = 0.001
)

// Anchor is the motion model's state for one slot: where the object was,
// when, and how many minutes it had left at that moment. Everything else is
// derived by linear interpolation.
type Anchor struct {
	Pos         flight.Point
	At          time.Time
	DurationMin float64
}

type track struct {
	dest     flight.Point
	anchor   *Anchor
	reported float64       // flight-reported ETA, served until the first anchor
	fix      *flight.Point // last real oracle position, nil until one is seen
	terminal bool
}

// Model holds both slots' tracks. It is not safe for concurrent use; the
// room actor is the only mutator.
type Model struct {
	tracks map[engine.Slot]*track
}

func NewModel() *Model {
	return &Model{tracks: map[engine.Slot]*track{}}
}

// Reset installs a deal-time track for the slot. A nil start position gets a
// synthesized placeholder offset from the destination so interpolation has
// two distinct endpoints.
func (m *Model) Reset(slot engine.Slot, dest flight.Point, start *flight.Point, etaMin float64, at time.Time) {
	tr := &track{dest: dest, reported: etaMin}
	pos := synthesizeStart(dest, etaMin)
	if start != nil {
		pos = *start
		tr.fix = start
	}
	tr.anchor = &Anchor{Pos: pos, At: at, DurationMin: floorDuration(etaMin)}
	m.tracks[slot] = tr
}

// Anchor re-anchors the slot wholesale at (pos, at, etaMin).
func (m *Model) Anchor(slot engine.Slot, pos flight.Point, etaMin float64, at time.Time) {
	tr := m.tracks[slot]
	if tr == nil || tr.terminal {
		return
	}
	tr.anchor = &Anchor{Pos: pos, At: at, DurationMin: floorDuration(etaMin)}
}

// MarkFix records a genuine oracle position, which arms the distance half
// of the landing gate.
func (m *Model) MarkFix(slot engine.Slot, pos flight.Point) {
	if tr := m.tracks[slot]; tr != nil {
		tr.fix = &pos
	}
}

// HasFix reports whether the slot has ever had a real position fix.
func (m *Model) HasFix(slot engine.Slot) bool {
	tr := m.tracks[slot]
	return tr != nil && tr.fix != nil
}

// Remaining derives the interpolated state at now. With no track yet it
// serves the last flight-reported ETA uninterpolated.
func (m *Model) Remaining(slot engine.Slot, now time.Time) (frac, minutes float64) {
	tr := m.tracks[slot]
	if tr == nil {
		return 0, 0
	}
	if tr.terminal {
		return 1, 0
	}
	if tr.anchor == nil {
		return 0, tr.reported
	}

	a := tr.anchor
	elapsed := now.Sub(a.At).Minutes()
	if elapsed < 0 {
		elapsed = 0
	}
	minutes = a.DurationMin - elapsed
	if minutes < 0 {
		minutes = 0
	}
	if a.DurationMin <= 0 {
		return 1, 0
	}
	frac = 1 - minutes/a.DurationMin
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return frac, minutes
}

// Position interpolates between the anchor and the fixed destination. Close
// enough to done, it returns the destination exactly.
func (m *Model) Position(slot engine.Slot, now time.Time) flight.Point {
	tr := m.tracks[slot]
	if tr == nil {
		return flight.Point{}
	}
	if tr.terminal {
		return tr.dest
	}
	if tr.anchor == nil {
		return tr.dest
	}

	frac, minutes := m.Remaining(slot, now)
	if frac >= landedFrac || minutes <= landedEpsMin {
		return tr.dest
	}
	a := tr.anchor
	return flight.Point{
		Lat: a.Pos.Lat + (tr.dest.Lat-a.Pos.Lat)*frac,
		Lng: a.Pos.Lng + (tr.dest.Lng-a.Pos.Lng)*frac,
	}
}

// FixDistanceKm is the great-circle distance from the last real position
// fix to the destination. Interpolated positions snap to the destination as
// the segment finishes, so the landing gate measures against the fix, not
// the rendered point. Returns 0 when no fix has been seen.
func (m *Model) FixDistanceKm(slot engine.Slot) float64 {
	tr := m.tracks[slot]
	if tr == nil || tr.fix == nil {
		return 0
	}
	return flight.DistanceKm(*tr.fix, tr.dest)
}

// Land freezes the slot at its destination with nothing remaining.
func (m *Model) Land(slot engine.Slot) {
	tr := m.tracks[slot]
	if tr == nil {
		return
	}
	tr.terminal = true
	tr.anchor = &Anchor{Pos: tr.dest, At: time.Time{}, DurationMin: 0}
}

// Landed reports whether the slot has been frozen terminal.
func (m *Model) Landed(slot engine.Slot) bool {
	tr := m.tracks[slot]
	return tr != nil && tr.terminal
}

func floorDuration(etaMin float64) float64 {
	if etaMin < DurationFloorMin {
		return DurationFloorMin
	}
	return etaMin
}

// synthesizeStart fabricates a northwest-of-destination start point scaled
// by the ETA, so positionless flights still animate toward the field.
func synthesizeStart(dest flight.Point, etaMin float64) flight.Point {
	if etaMin < 1 {
		etaMin = 1
	}
	return flight.Point{
		Lat: dest.Lat + 0.03*etaMin,
		Lng: dest.Lng - 0.08*etaMin,
	}
}
