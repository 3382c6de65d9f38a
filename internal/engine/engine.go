package engine

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/DoyleJ11/diplomats-club/internal/flight"
)

var ErrWrongTurn = errors.New("not your turn")
var ErrBadPhase = errors.New("invalid action for current phase")
var ErrBadSlot = errors.New("unknown slot")
var ErrBadDeal = errors.New("deal needs two valid flights")
var ErrAlreadyResolved = errors.New("round already resolved")
var ErrGameOver = errors.New("game is over")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Seat string

const (
	SeatHost  Seat = "host"
	SeatGuest Seat = "guest"
)

func (s Seat) Other() Seat {
	if s == SeatHost {
		return SeatGuest
	}
	return SeatHost
}

type Slot string

const (
	SlotA Slot = "A"
	SlotB Slot = "B"
)

func (s Slot) Other() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseDealt  Phase = "dealt"
	PhaseRacing Phase = "racing"
)

const (
	MinBet            = 25
	DefaultBet        = 50
	StartBankrollHost = 500
	// The guest seat starts deep-pocketed, per house rules.
	StartBankrollGuest = 2000
)

// Odds records the longshot side at pick time. An empty Slot means the two
// ETAs tied and no longshot exists this round.
type Odds struct {
	Slot       Slot    `json:"slot,omitempty" bson:"slot,omitempty"`
	Multiplier float64 `json:"multiplier" bson:"multiplier"`
}

// State is one room's full round + bankroll state. It is treated as a value:
// Apply copies it, mutates the copy, and returns it with the emitted events.
type State struct {
	Phase     Phase                  `json:"phase" bson:"phase"`
	Turn      Seat                   `json:"turn" bson:"turn"`
	Airport   string                 `json:"airport" bson:"airport"`
	Bet       int                    `json:"bet" bson:"bet"`
	Flights   map[Slot]flight.Flight `json:"flights,omitempty" bson:"flights,omitempty"`
	Chosen    Slot                   `json:"chosen,omitempty" bson:"chosen,omitempty"`
	Owners    map[Slot]Seat          `json:"owners,omitempty" bson:"owners,omitempty"`
	Seed      int64                  `json:"seed" bson:"seed"`
	Odds      Odds                   `json:"odds" bson:"odds"`
	RaceStart time.Time              `json:"race_start,omitempty" bson:"race_start,omitempty"`
	Bankrolls map[Seat]int           `json:"bankrolls" bson:"bankrolls"`
	Resolved  bool                   `json:"resolved" bson:"resolved"`
	GameOver  bool                   `json:"game_over" bson:"game_over"`
}

type CommandType string

const (
	CmdSetBet     CommandType = "SetBet"
	CmdAllIn      CommandType = "AllIn"
	CmdSetAirport CommandType = "SetAirport"
	CmdDeal       CommandType = "Deal"
	CmdPick       CommandType = "Pick"
	CmdResolve    CommandType = "Resolve"
)

// ResolveObs is what the race clock observed at resolution time: latched
// landed flags plus baseline-derived remaining minutes for each slot. The
// reducer never reads clocks itself; it judges the race purely from these.
type ResolveObs struct {
	LandedA    bool
	LandedB    bool
	RemainingA float64
	RemainingB float64
}

type Command struct {
	Type    CommandType
	Seat    Seat
	Slot    Slot
	Amount  int
	Airport string
	FlightA flight.Flight
	FlightB flight.Flight
	Seed    int64
	At      time.Time
	Obs     ResolveObs
}

type EventType string

const (
	EvtFlightsDealt  EventType = "FlightsDealt"
	EvtSlotPicked    EventType = "SlotPicked"
	EvtRaceStarted   EventType = "RaceStarted"
	EvtRoundResolved EventType = "RoundResolved"
	EvtTurnAdvanced  EventType = "TurnAdvanced"
	EvtPlayerBusted  EventType = "PlayerBusted"
)

type Event struct {
	Type        EventType
	Seat        Seat
	Slot        Slot
	Winner      Seat
	WinningSlot Slot
	Payout      int
	Multiplied  bool
}

// Apply runs one command against the state and returns the emitted events
// plus the new state. The input state is never mutated.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if s.GameOver {
		return nil, s, ErrGameOver
	}

	newState := s.clone()

	switch cmd.Type {
	case CmdSetBet:
		if s.Phase == PhaseRacing {
			return nil, s, ErrBadPhase
		}
		newState.Bet = clampBet(cmd.Amount, s.Bankrolls)
		return nil, newState, nil

	case CmdAllIn:
		if s.Phase == PhaseRacing {
			return nil, s, ErrBadPhase
		}
		newState.Bet = maxBet(s.Bankrolls)
		return nil, newState, nil

	case CmdSetAirport:
		if s.Phase != PhaseIdle {
			return nil, s, ErrBadPhase
		}
		code := strings.ToUpper(strings.TrimSpace(cmd.Airport))
		if code == "" {
			code = "JFK"
		}
		newState.Airport = code
		return nil, newState, nil

	case CmdDeal:
		if s.Phase != PhaseIdle {
			return nil, s, ErrBadPhase
		}
		if !cmd.FlightA.Valid() || !cmd.FlightB.Valid() {
			return nil, s, ErrBadDeal
		}
		newState.Flights = map[Slot]flight.Flight{SlotA: cmd.FlightA, SlotB: cmd.FlightB}
		newState.Seed = cmd.Seed
		newState.Chosen = ""
		newState.Owners = map[Slot]Seat{}
		newState.Odds = Odds{}
		newState.RaceStart = time.Time{}
		newState.Resolved = false
		newState.Phase = PhaseDealt
		return []Event{{Type: EvtFlightsDealt}}, newState, nil

	case CmdPick:
		if s.Phase != PhaseDealt {
			return nil, s, ErrBadPhase
		}
		if cmd.Seat != s.Turn {
			return nil, s, ErrWrongTurn
		}
		if cmd.Slot != SlotA && cmd.Slot != SlotB {
			return nil, s, ErrBadSlot
		}
		newState.Chosen = cmd.Slot
		// Picker gets the chosen slot, the opponent gets the other.
		newState.Owners = map[Slot]Seat{
			cmd.Slot:         cmd.Seat,
			cmd.Slot.Other(): cmd.Seat.Other(),
		}
		newState.Odds = ComputeOdds(s.Flights[SlotA].ETAMinutes, s.Flights[SlotB].ETAMinutes)
		newState.RaceStart = cmd.At
		newState.Phase = PhaseRacing
		events := []Event{
			{Type: EvtSlotPicked, Seat: cmd.Seat, Slot: cmd.Slot},
			{Type: EvtRaceStarted},
		}
		return events, newState, nil

	case CmdResolve:
		if s.Phase != PhaseRacing {
			return nil, s, ErrBadPhase
		}
		if s.Resolved {
			return nil, s, ErrAlreadyResolved
		}

		winSlot := winnerSlot(cmd.Obs, s.Seed)
		winner := s.Owners[winSlot]
		multiplied := s.Odds.Slot != "" && winSlot == s.Odds.Slot
		payout := s.Bet
		if multiplied {
			payout = int(math.Round(float64(s.Bet) * s.Odds.Multiplier))
		}

		newState.Bankrolls = map[Seat]int{
			winner:         s.Bankrolls[winner] + payout,
			winner.Other(): s.Bankrolls[winner.Other()] - payout,
		}
		newState.Resolved = true
		newState.Phase = PhaseIdle
		newState.Flights = nil
		newState.Chosen = ""
		newState.Owners = map[Slot]Seat{}
		newState.Turn = s.Turn.Other()
		newState.Bet = clampBet(s.Bet, newState.Bankrolls)

		events := []Event{
			{Type: EvtRoundResolved, Winner: winner, WinningSlot: winSlot, Payout: payout, Multiplied: multiplied},
			{Type: EvtTurnAdvanced},
		}
		if busted, seat := bustedSeat(newState.Bankrolls); busted {
			newState.GameOver = true
			events = append(events, Event{Type: EvtPlayerBusted, Seat: seat})
		}
		return events, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// winnerSlot picks the winning slot from the clock's observations: an
// unambiguous landing wins outright, otherwise the lower remaining time,
// with the round seed's parity as the deterministic last-resort tie-break.
func winnerSlot(obs ResolveObs, seed int64) Slot {
	switch {
	case obs.LandedA && !obs.LandedB:
		return SlotA
	case obs.LandedB && !obs.LandedA:
		return SlotB
	}
	switch {
	case obs.RemainingA < obs.RemainingB:
		return SlotA
	case obs.RemainingB < obs.RemainingA:
		return SlotB
	}
	if seed%2 == 0 {
		return SlotA
	}
	return SlotB
}

func clampBet(amount int, bankrolls map[Seat]int) int {
	hi := maxBet(bankrolls)
	if amount < MinBet {
		return MinBet
	}
	if amount > hi {
		return hi
	}
	return amount
}

// maxBet is the smaller of the two bankrolls: nobody gets bet past broke.
func maxBet(bankrolls map[Seat]int) int {
	hi := bankrolls[SeatHost]
	if g := bankrolls[SeatGuest]; g < hi {
		hi = g
	}
	if hi < MinBet {
		return MinBet
	}
	return hi
}

func bustedSeat(bankrolls map[Seat]int) (bool, Seat) {
	for _, seat := range []Seat{SeatHost, SeatGuest} {
		if bankrolls[seat] <= 0 {
			return true, seat
		}
	}
	return false, ""
}

func (s State) clone() State {
	c := s
	if s.Flights != nil {
		c.Flights = make(map[Slot]flight.Flight, len(s.Flights))
		for k, v := range s.Flights {
			c.Flights[k] = v
		}
	}
	if s.Owners != nil {
		c.Owners = make(map[Slot]Seat, len(s.Owners))
		for k, v := range s.Owners {
			c.Owners[k] = v
		}
	}
	if s.Bankrolls != nil {
		c.Bankrolls = make(map[Seat]int, len(s.Bankrolls))
		for k, v := range s.Bankrolls {
			c.Bankrolls[k] = v
		}
	}
	return c
}
