package room

import (
	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/flight"
	"github.com/DoyleJ11/diplomats-club/internal/raceclock"
	"github.com/DoyleJ11/diplomats-club/internal/store"
	"github.com/DoyleJ11/diplomats-club/pkg/types"
)

// buildSnapshot projects the authoritative doc into the wire shape. While
// the round sits in the blind-pick window, ETAs and positions are withheld
// from both players; they only become visible once the pick is locked.
func buildSnapshot(doc store.Doc, banner *raceclock.Banner) types.RoomSnapshot {
	s := doc.State

	snap := types.RoomSnapshot{
		Code:        doc.Code,
		Phase:       string(s.Phase),
		Turn:        string(s.Turn),
		Airport:     s.Airport,
		AirportName: flight.DestName(s.Airport),
		Bet:         s.Bet,
		Chosen:      string(s.Chosen),
		Bankrolls:   map[string]int{},
		Seats:       map[string]bool{},
		GameOver:    s.GameOver,
	}
	for seat, cash := range s.Bankrolls {
		snap.Bankrolls[string(seat)] = cash
	}
	for seat, player := range doc.Seats {
		snap.Seats[string(seat)] = player != ""
	}
	if len(s.Owners) > 0 {
		snap.Owners = map[string]string{}
		for slot, seat := range s.Owners {
			snap.Owners[string(slot)] = string(seat)
		}
	}
	if s.Phase == engine.PhaseRacing && s.Odds.Multiplier > 0 {
		snap.Odds = &types.OddsInfo{Slot: string(s.Odds.Slot), Multiplier: s.Odds.Multiplier}
	}

	if len(s.Flights) > 0 {
		blind := s.Phase == engine.PhaseDealt
		snap.Flights = map[string]types.FlightCard{}
		for slot, f := range s.Flights {
			card := types.FlightCard{
				Callsign: f.Callsign,
				Origin:   f.Origin,
				Dest:     f.Dest,
				DestName: flight.DestName(f.Dest),
			}
			if !blind {
				card.ETAMinutes = f.ETAMinutes
				card.Pos = f.Pos
				if banner != nil {
					card.Landed = banner.Landed(slot)
				}
			}
			snap.Flights[string(slot)] = card
		}
	}
	return snap
}

func bannerFrame(v raceclock.View) *types.BannerFrame {
	frame := &types.BannerFrame{
		Slots:         map[string]types.SlotBanner{},
		Leader:        string(v.Leader),
		NextUpdateSec: v.NextUpdateSec,
		Degraded:      v.Degraded,
		Resolvable:    v.Resolvable,
	}
	for slot, sv := range v.Slots {
		frame.Slots[string(slot)] = types.SlotBanner{
			Countdown:    sv.Countdown,
			RemainingMin: sv.Remaining,
			Progress:     sv.Progress,
			Landed:       sv.Landed,
		}
	}
	return frame
}
