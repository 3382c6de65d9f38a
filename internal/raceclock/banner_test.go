package raceclock

import (
	"testing"
	"time"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/flight"
	"github.com/DoyleJ11/diplomats-club/internal/segment"
)

var jfk = flight.Point{Lat: 40.6413, Lng: -73.7781}

func newRacingBanner(start time.Time, etaA, etaB float64) *Banner {
	m := segment.NewModel()
	m.Reset(engine.SlotA, jfk, nil, etaA, start)
	m.Reset(engine.SlotB, jfk, nil, etaB, start)
	b := segment.NewBaseline()
	b.Init(map[engine.Slot]float64{engine.SlotA: etaA, engine.SlotB: etaB}, start)
	return NewBanner(m, b)
}

func TestTickCountsBothSlotsDown(t *testing.T) {
	start := time.Now()
	b := newRacingBanner(start, 10, 4)

	view, landed := b.Tick(start.Add(2 * time.Minute))
	if len(landed) != 0 {
		t.Fatalf("landed early: %v", landed)
	}
	if got := view.Slots[engine.SlotA].Remaining; got != 8 {
		t.Fatalf("A remaining = %v, want 8", got)
	}
	if got := view.Slots[engine.SlotB].Remaining; got != 2 {
		t.Fatalf("B remaining = %v, want 2", got)
	}
	if view.Resolvable {
		t.Fatalf("resolvable before any landing")
	}
}

func TestLandingLatchesOnce(t *testing.T) {
	start := time.Now()
	b := newRacingBanner(start, 10, 4)

	_, landed := b.Tick(start.Add(5 * time.Minute))
	if len(landed) != 1 || landed[0] != engine.SlotB {
		t.Fatalf("newly landed = %v, want [B]", landed)
	}

	// The latch fires exactly once; later ticks still show the slot landed.
	view, landed := b.Tick(start.Add(6 * time.Minute))
	if len(landed) != 0 {
		t.Fatalf("slot landed twice: %v", landed)
	}
	if !view.Slots[engine.SlotB].Landed || !view.Resolvable {
		t.Fatalf("landed flag not sticky: %+v", view.Slots[engine.SlotB])
	}
	if view.Slots[engine.SlotB].Countdown != "landed" {
		t.Fatalf("countdown = %q", view.Slots[engine.SlotB].Countdown)
	}
	if !b.Landed(engine.SlotB) || b.Landed(engine.SlotA) {
		t.Fatalf("latched flags wrong")
	}
}

func TestLandingGateHoldsUntilWithinDistance(t *testing.T) {
	start := time.Now()
	m := segment.NewModel()
	// Anchored far away with a real fix and a tiny ETA, so interpolation
	// finishes while the object is still nowhere near the field.
	m.Reset(engine.SlotA, jfk, &flight.Point{Lat: 45.0, Lng: -80.0}, 0.5, start)
	m.Reset(engine.SlotB, jfk, nil, 30, start)
	base := segment.NewBaseline()
	base.Init(map[engine.Slot]float64{engine.SlotA: 0.5, engine.SlotB: 30}, start)
	b := NewBanner(m, base)

	at := start.Add(time.Minute)
	if _, landed := b.Tick(at); len(landed) != 0 {
		t.Fatalf("landed despite being %0.f km out", m.FixDistanceKm(engine.SlotA))
	}

	// Once the oracle shows the object at the field, the gate opens.
	m.MarkFix(engine.SlotA, jfk)
	if _, landed := b.Tick(at.Add(time.Second)); len(landed) != 1 || landed[0] != engine.SlotA {
		t.Fatalf("did not land at the field: %v", landed)
	}
}

func TestLandingGateYieldsToTimeDuringOutage(t *testing.T) {
	start := time.Now()
	m := segment.NewModel()
	// A real fix well outside the distance threshold, then the oracle goes
	// dark. With the connection degraded the stale fix must not hold the
	// gate shut past the ETA.
	m.Reset(engine.SlotA, jfk, &flight.Point{Lat: 41.8, Lng: -74.5}, 5, start)
	m.Reset(engine.SlotB, jfk, nil, 30, start)
	base := segment.NewBaseline()
	base.Init(map[engine.Slot]float64{engine.SlotA: 5, engine.SlotB: 30}, start)
	b := NewBanner(m, base)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	if !b.Degraded() {
		t.Fatal("not degraded after three consecutive failures")
	}

	view, landed := b.Tick(start.Add(6 * time.Minute))
	if len(landed) != 1 || landed[0] != engine.SlotA {
		t.Fatalf("did not land %.0f km out while degraded: %v",
			m.FixDistanceKm(engine.SlotA), landed)
	}
	if !view.Resolvable {
		t.Fatal("round not resolvable after degraded landing")
	}
}

func TestLandingGateSkipsDistanceWithoutFix(t *testing.T) {
	start := time.Now()
	b := newRacingBanner(start, 2, 30) // synthesized starts only, no fixes

	_, landed := b.Tick(start.Add(3 * time.Minute))
	if len(landed) != 1 || landed[0] != engine.SlotA {
		t.Fatalf("time-only landing rejected: %v", landed)
	}
}

func TestDisplayRemainingTakesTheLargerAccounting(t *testing.T) {
	start := time.Now()
	b := newRacingBanner(start, 10, 10)

	// A rebase shortens the interpolated segment but the baseline was only
	// lowered part of the way; the displayed number must follow the larger.
	at := start.Add(2 * time.Minute)
	b.model.Anchor(engine.SlotA, jfk, 1, at)

	if got := b.DisplayRemaining(engine.SlotA, at); got != 8 {
		t.Fatalf("display = %v, want baseline 8", got)
	}
}

func TestLeaderHysteresis(t *testing.T) {
	start := time.Now()
	b := newRacingBanner(start, 10, 9)

	view, _ := b.Tick(start)
	if view.Leader != engine.SlotB {
		t.Fatalf("initial leader = %q, want B", view.Leader)
	}

	// A rebase flips the raw ordering immediately afterwards. Within the
	// lock window the banner keeps the incumbent.
	b.model.Anchor(engine.SlotA, jfk, 1, start)
	b.baseline.Lower(engine.SlotA, 9)
	view, _ = b.Tick(start.Add(time.Second))
	if view.Leader != engine.SlotB {
		t.Fatalf("leader flipped inside the lock window")
	}

	view, _ = b.Tick(start.Add(LeaderLock + time.Second))
	if view.Leader != engine.SlotA {
		t.Fatalf("leader = %q after lock expiry, want A", view.Leader)
	}
}

func TestDegradedAfterConsecutiveFailures(t *testing.T) {
	b := newRacingBanner(time.Now(), 10, 5)

	b.RecordFailure()
	b.RecordFailure()
	if b.Degraded() {
		t.Fatalf("degraded too early")
	}
	b.RecordFailure()
	if !b.Degraded() {
		t.Fatalf("not degraded after three failures")
	}

	b.RecordSuccess()
	if b.Degraded() {
		t.Fatalf("success did not clear the indicator")
	}

	// The streak must be consecutive.
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	if b.Degraded() {
		t.Fatalf("non-consecutive failures flipped the indicator")
	}
}

func TestNextUpdateCountdown(t *testing.T) {
	start := time.Now()
	b := newRacingBanner(start, 10, 5)
	b.SetNextUpdate(start.Add(45 * time.Second))

	view, _ := b.Tick(start.Add(5 * time.Second))
	if view.NextUpdateSec != 40 {
		t.Fatalf("next update = %d, want 40", view.NextUpdateSec)
	}

	view, _ = b.Tick(start.Add(2 * time.Minute))
	if view.NextUpdateSec != 0 {
		t.Fatalf("next update = %d after due time", view.NextUpdateSec)
	}
}

func TestObsMatchesDisplay(t *testing.T) {
	start := time.Now()
	b := newRacingBanner(start, 10, 4)
	at := start.Add(5 * time.Minute)
	b.Tick(at)

	obs := b.Obs(at)
	if !obs.LandedB || obs.LandedA {
		t.Fatalf("obs landed flags: %+v", obs)
	}
	if obs.RemainingB != 0 || obs.RemainingA != 5 {
		t.Fatalf("obs remainings: %+v", obs)
	}
}

func TestResetClearsLatches(t *testing.T) {
	start := time.Now()
	b := newRacingBanner(start, 10, 4)
	b.Tick(start.Add(5 * time.Minute))
	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()

	b.Reset()
	if b.Landed(engine.SlotB) || b.Degraded() {
		t.Fatalf("reset did not clear state")
	}
}

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		minutes float64
		want    string
	}{
		{4.034, "4m 03s"},
		{0.5, "0m 30s"},
		{10, "10m 00s"},
		{0, "landed"},
		{-1, "landed"},
	}
	for _, tc := range cases {
		if got := FormatCountdown(tc.minutes); got != tc.want {
			t.Fatalf("FormatCountdown(%v) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}
