package room

import (
	"time"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
)

// Flags is the slice of a room document the sync reducer cares about.
type Flags struct {
	Rev       int64
	Phase     engine.Phase
	Chosen    engine.Slot
	Seed      int64
	RaceStart time.Time
}

// Decision says what adopting a snapshot means for the local race session.
// Exactly one of the action fields is set for a non-ignored snapshot (all
// false means nothing to do).
type Decision struct {
	Ignore       bool // duplicate or out-of-order, drop entirely
	NewDeal      bool // fresh flights: reset all per-round accounting
	RaceStarted  bool // initialize baseline, start clock + rebase timers
	Continuation bool // already-known race: must NOT touch baseline/timers
	RoundEnded   bool // race left: stop session, discard baseline
}

// Decide diffs the previous local projection against an incoming document.
// It is a pure function so the whole remote-merge policy is table-testable
// without a store or network.
func Decide(prev, next Flags) Decision {
	if next.Rev <= prev.Rev {
		return Decision{Ignore: true}
	}

	switch next.Phase {
	case engine.PhaseDealt:
		if prev.Phase != engine.PhaseDealt || prev.Seed != next.Seed {
			return Decision{NewDeal: true}
		}
		return Decision{}

	case engine.PhaseRacing:
		if prev.Phase != engine.PhaseRacing {
			return Decision{RaceStarted: true}
		}
		if !prev.RaceStart.Equal(next.RaceStart) || prev.Seed != next.Seed {
			// a different race than the one we were animating
			return Decision{RaceStarted: true}
		}
		return Decision{Continuation: true}

	default:
		if prev.Phase == engine.PhaseRacing || prev.Phase == engine.PhaseDealt {
			return Decision{RoundEnded: true}
		}
		return Decision{}
	}
}

func flagsOf(rev int64, s engine.State) Flags {
	return Flags{
		Rev:       rev,
		Phase:     s.Phase,
		Chosen:    s.Chosen,
		Seed:      s.Seed,
		RaceStart: s.RaceStart,
	}
}
