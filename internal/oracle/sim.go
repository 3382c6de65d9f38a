package oracle

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/DoyleJ11/diplomats-club/internal/flight"
)

// SimClient serves the oracle contract from the simulated dealer: deals are
// generated locally and tracking refreshes are the dealt ETA run down in
// real time with a little jitter, so the whole rebase path exercises the
// same way it does against the live endpoint.
type SimClient struct {
	sim   *flight.Sim
	clock clockwork.Clock

	mu    sync.Mutex
	dealt map[string]simDealt
}

type simDealt struct {
	eta float64
	at  time.Time
}

func NewSimClient(sim *flight.Sim, clock clockwork.Clock) *SimClient {
	return &SimClient{sim: sim, clock: clock, dealt: map[string]simDealt{}}
}

func (s *SimClient) Deal(_ context.Context, airport string) (flight.Flight, flight.Flight, error) {
	a, b := s.sim.Deal(airport)
	now := s.clock.Now()
	s.mu.Lock()
	s.dealt[a.ID] = simDealt{eta: a.ETAMinutes, at: now}
	s.dealt[b.ID] = simDealt{eta: b.ETAMinutes, at: now}
	s.mu.Unlock()
	return a, b, nil
}

func (s *SimClient) Track(_ context.Context, _ string, ids []string) (map[string]Update, error) {
	now := s.clock.Now()
	out := map[string]Update{}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		d, ok := s.dealt[id]
		if !ok {
			continue
		}
		eta := d.eta - now.Sub(d.at).Minutes() + (rand.Float64()-0.5)*0.5
		if eta < 0 {
			eta = 0
		}
		out[id] = Update{ID: id, ETAMinutes: eta}
	}
	if len(out) == 0 {
		return nil, ErrNoFlights
	}
	return out, nil
}
