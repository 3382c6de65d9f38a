package segment

import (
	"math"
	"testing"
	"time"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/flight"
)

var jfk = flight.Point{Lat: 40.6413, Lng: -73.7781}

func TestRemainingInterpolatesLinearly(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewModel()
	m.Reset(engine.SlotA, jfk, &flight.Point{Lat: 41.0, Lng: -74.5}, 10, start)

	cases := []struct {
		name        string
		at          time.Time
		wantFrac    float64
		wantMinutes float64
	}{
		{"at anchor", start, 0, 10},
		{"halfway", start.Add(5 * time.Minute), 0.5, 5},
		{"ninety percent", start.Add(9 * time.Minute), 0.9, 1},
		{"past the end", start.Add(15 * time.Minute), 1, 0},
		{"clock skewed before anchor", start.Add(-time.Minute), 0, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frac, minutes := m.Remaining(engine.SlotA, tc.at)
			if math.Abs(frac-tc.wantFrac) > 1e-9 {
				t.Fatalf("frac = %v, want %v", frac, tc.wantFrac)
			}
			if math.Abs(minutes-tc.wantMinutes) > 1e-9 {
				t.Fatalf("minutes = %v, want %v", minutes, tc.wantMinutes)
			}
		})
	}
}

func TestRemainingNeverDecreasesFrac(t *testing.T) {
	start := time.Now()
	m := NewModel()
	m.Reset(engine.SlotA, jfk, nil, 8, start)

	prev := -1.0
	for secs := 0; secs <= 10*60; secs += 15 {
		frac, _ := m.Remaining(engine.SlotA, start.Add(time.Duration(secs)*time.Second))
		if frac < prev {
			t.Fatalf("frac went backwards at %ds: %v < %v", secs, frac, prev)
		}
		if frac < 0 || frac > 1 {
			t.Fatalf("frac out of bounds at %ds: %v", secs, frac)
		}
		prev = frac
	}
}

func TestDurationFloorAvoidsDegenerateSegments(t *testing.T) {
	start := time.Now()
	m := NewModel()
	m.Reset(engine.SlotA, jfk, nil, 0, start)

	frac, minutes := m.Remaining(engine.SlotA, start)
	if math.IsNaN(frac) || math.IsInf(frac, 0) {
		t.Fatalf("frac = %v", frac)
	}
	if minutes != DurationFloorMin {
		t.Fatalf("minutes = %v, want floor %v", minutes, DurationFloorMin)
	}
}

func TestPositionSnapsToDestinationNearDone(t *testing.T) {
	start := time.Now()
	m := NewModel()
	m.Reset(engine.SlotA, jfk, &flight.Point{Lat: 42.0, Lng: -71.0}, 10, start)

	mid := m.Position(engine.SlotA, start.Add(5*time.Minute))
	if mid == jfk {
		t.Fatalf("snapped to destination at the halfway point")
	}

	late := m.Position(engine.SlotA, start.Add(10*time.Minute))
	if late != jfk {
		t.Fatalf("position near done = %+v, want destination", late)
	}
}

func TestSynthesizedStartIsDistinctFromDestination(t *testing.T) {
	start := time.Now()
	m := NewModel()
	m.Reset(engine.SlotB, jfk, nil, 6, start)

	pos := m.Position(engine.SlotB, start)
	if pos == jfk {
		t.Fatalf("synthesized start coincides with the destination")
	}
	if m.HasFix(engine.SlotB) {
		t.Fatalf("synthesized start must not count as a real fix")
	}
}

func TestLandFreezesTrack(t *testing.T) {
	start := time.Now()
	m := NewModel()
	m.Reset(engine.SlotA, jfk, nil, 10, start)
	m.Land(engine.SlotA)

	if !m.Landed(engine.SlotA) {
		t.Fatalf("not landed after Land")
	}
	frac, minutes := m.Remaining(engine.SlotA, start)
	if frac != 1 || minutes != 0 {
		t.Fatalf("landed track reports frac=%v minutes=%v", frac, minutes)
	}
	if got := m.Position(engine.SlotA, start.Add(time.Hour)); got != jfk {
		t.Fatalf("landed position = %+v", got)
	}

	// Terminal tracks refuse further anchoring.
	m.Anchor(engine.SlotA, flight.Point{Lat: 50, Lng: 0}, 99, start)
	if _, minutes := m.Remaining(engine.SlotA, start); minutes != 0 {
		t.Fatalf("landed track re-anchored")
	}
}

func TestMarkFixArmsOnlyThatSlot(t *testing.T) {
	start := time.Now()
	m := NewModel()
	m.Reset(engine.SlotA, jfk, nil, 5, start)
	m.Reset(engine.SlotB, jfk, nil, 5, start)

	far := flight.Point{Lat: 45.0, Lng: -80.0}
	m.MarkFix(engine.SlotA, far)
	if !m.HasFix(engine.SlotA) || m.HasFix(engine.SlotB) {
		t.Fatalf("fix flags: A=%v B=%v", m.HasFix(engine.SlotA), m.HasFix(engine.SlotB))
	}
	if m.FixDistanceKm(engine.SlotA) < 100 {
		t.Fatalf("fix distance = %v km", m.FixDistanceKm(engine.SlotA))
	}
	if m.FixDistanceKm(engine.SlotB) != 0 {
		t.Fatalf("unfixed slot reports a distance")
	}
}
