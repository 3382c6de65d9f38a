package engine

const (
	multiplierMin = 1.1
	multiplierMax = 2.5
)

// ComputeOdds derives the longshot multiplier from the two raw ETAs at pick
// time: the ratio of the longer to the shorter, clamped to [1.1, 2.5], and
// recorded against the longer-ETA slot. Exactly equal ETAs yield no
// longshot. The curve is house policy, not a rule of the race itself.
func ComputeOdds(etaA, etaB float64) Odds {
	if etaA == etaB {
		return Odds{Multiplier: 1.0}
	}

	long, short := etaA, etaB
	slot := SlotA
	if etaB > etaA {
		long, short = etaB, etaA
		slot = SlotB
	}
	if short <= 0 {
		return Odds{Slot: slot, Multiplier: multiplierMax}
	}

	mult := long / short
	if mult < multiplierMin {
		mult = multiplierMin
	}
	if mult > multiplierMax {
		mult = multiplierMax
	}
	return Odds{Slot: slot, Multiplier: mult}
}
