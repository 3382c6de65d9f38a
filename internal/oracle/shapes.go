package oracle

import (
	"encoding/json"
	"fmt"

	"github.com/DoyleJ11/diplomats-club/internal/flight"
)

// The endpoint has grown two response shapes over time: the original deal
// shape {A:{...},B:{...}} and the tracking-refresh shape
// {tracked:[{id,pos,etaMinutes}],updatedAt}. All sniffing lives here; the
// rest of the module only ever sees flight.Flight and Update.

// Update is one normalized tracking refresh for a flight.
type Update struct {
	ID         string
	Pos        *flight.Point
	ETAMinutes float64
}

type rawFlight struct {
	ID         string        `json:"id"`
	Callsign   string        `json:"callsign"`
	Origin     string        `json:"origin"`
	Dest       string        `json:"dest"`
	ETAMinutes float64       `json:"etaMinutes"`
	DistanceNm float64       `json:"distanceNm"`
	Pos        *flight.Point `json:"pos"`
}

type dealResponse struct {
	A *rawFlight `json:"A"`
	B *rawFlight `json:"B"`
}

type trackResponse struct {
	Tracked []struct {
		ID         string        `json:"id"`
		Pos        *flight.Point `json:"pos"`
		ETAMinutes float64       `json:"etaMinutes"`
	} `json:"tracked"`
	UpdatedAt int64 `json:"updatedAt"`
}

func (r *rawFlight) normalize(airport string) flight.Flight {
	f := flight.Flight{
		ID:         r.ID,
		Callsign:   r.Callsign,
		Origin:     r.Origin,
		Dest:       r.Dest,
		DistanceNm: r.DistanceNm,
	}
	if f.ID == "" {
		f.ID = r.Callsign
	}
	if f.Dest == "" {
		f.Dest = airport
	}
	f.SetETA(r.ETAMinutes)
	if r.Pos != nil {
		f.SetPos(*r.Pos)
	}
	return f
}

func parseDeal(body []byte, airport string) (flight.Flight, flight.Flight, error) {
	var resp dealResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return flight.Flight{}, flight.Flight{}, fmt.Errorf("decode deal response: %w", err)
	}
	if resp.A == nil || resp.B == nil {
		return flight.Flight{}, flight.Flight{}, ErrNoFlights
	}
	return resp.A.normalize(airport), resp.B.normalize(airport), nil
}

// parseTrack accepts either shape: the tracked list, or a legacy A/B body
// which is mapped onto the requested ids in order.
func parseTrack(body []byte, ids []string) (map[string]Update, error) {
	var resp trackResponse
	if err := json.Unmarshal(body, &resp); err == nil && len(resp.Tracked) > 0 {
		out := make(map[string]Update, len(resp.Tracked))
		for _, t := range resp.Tracked {
			upd := Update{ID: t.ID, Pos: t.Pos}
			upd.ETAMinutes = t.ETAMinutes
			if upd.ETAMinutes < 0 {
				upd.ETAMinutes = 0
			}
			out[t.ID] = upd
		}
		return out, nil
	}

	var legacy dealResponse
	if err := json.Unmarshal(body, &legacy); err != nil {
		return nil, fmt.Errorf("decode track response: %w", err)
	}
	out := map[string]Update{}
	for i, raw := range []*rawFlight{legacy.A, legacy.B} {
		if raw == nil || i >= len(ids) {
			continue
		}
		eta := raw.ETAMinutes
		if eta < 0 {
			eta = 0
		}
		out[ids[i]] = Update{ID: ids[i], Pos: raw.Pos, ETAMinutes: eta}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("track response matched no requested flights")
	}
	return out, nil
}
