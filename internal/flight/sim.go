package flight

import (
	"fmt"
	"math/rand"
)

const (
	simMinMinutes = 3
	simMaxMinutes = 14
)

// Sim deals plausible fake arrivals when no live oracle is reachable (or in
// sim mode). A nil Rand uses the shared global source.
type Sim struct {
	rand *rand.Rand
}

func NewSim(r *rand.Rand) *Sim {
	return &Sim{rand: r}
}

func (s *Sim) intn(n int) int {
	if s.rand != nil {
		return s.rand.Intn(n)
	}
	return rand.Intn(n)
}

// Deal returns two in-air arrivals for the airport with distinct origins.
func (s *Sim) Deal(airport string) (Flight, Flight) {
	a := s.one(airport)
	b := s.one(airport)
	if b.Origin == a.Origin {
		// nudge to a different origin for variety
		for i, o := range originPool {
			if o == a.Origin {
				b.Origin = originPool[(i+3)%len(originPool)]
				b.Callsign = fmt.Sprintf("%s%d", b.Origin, 100+s.intn(900))
				b.ID = fmt.Sprintf("sim-%s%03d", b.Origin, s.intn(1000))
				break
			}
		}
	}
	return a, b
}

func (s *Sim) one(airport string) Flight {
	origin := originPool[s.intn(len(originPool))]
	mins := float64(simMinMinutes + s.intn(simMaxMinutes-simMinMinutes+1))
	return Flight{
		ID:         fmt.Sprintf("sim-%s%03d", origin, s.intn(1000)),
		Callsign:   fmt.Sprintf("%s%d", origin, 100+s.intn(900)),
		Origin:     origin,
		Dest:       airport,
		ETAMinutes: mins,
		DistanceNm: float64(120 + s.intn(1381)),
	}
}
