package types

import "github.com/DoyleJ11/diplomats-club/internal/flight"

// Client -> Server
type ClientMessage struct {
	Type    string `json:"type"` // "SetBet" | "AllIn" | "SetAirport" | "Deal" | "Pick"
	Slot    string `json:"slot,omitempty"`
	Amount  int    `json:"amount,omitempty"`
	Airport string `json:"airport,omitempty"`
}

// Server -> Client
type ServerMessage struct {
	Type    string        `json:"type"` // "StateSnapshot" | "Notice" | "Error"
	Version int           `json:"version,omitempty"`
	Room    *RoomSnapshot `json:"room,omitempty"`
	Banner  *BannerFrame  `json:"banner,omitempty"`
	Notice  string        `json:"notice,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// RoomSnapshot is the externally visible room state. While the round is in
// the blind-pick window the flight cards carry no ETA or position.
type RoomSnapshot struct {
	Code        string                `json:"code"`
	Phase       string                `json:"phase"`
	Turn        string                `json:"turn"`
	Airport     string                `json:"airport"`
	AirportName string                `json:"airport_name"`
	Bet         int                   `json:"bet"`
	Chosen      string                `json:"chosen,omitempty"`
	Owners      map[string]string     `json:"owners,omitempty"`
	Odds        *OddsInfo             `json:"odds,omitempty"`
	Bankrolls   map[string]int        `json:"bankrolls"`
	Seats       map[string]bool       `json:"seats"`
	GameOver    bool                  `json:"game_over,omitempty"`
	Flights     map[string]FlightCard `json:"flights,omitempty"`
}

type FlightCard struct {
	Callsign   string        `json:"callsign"`
	Origin     string        `json:"origin"`
	Dest       string        `json:"dest"`
	DestName   string        `json:"dest_name"`
	ETAMinutes float64       `json:"eta_minutes,omitempty"`
	Pos        *flight.Point `json:"pos,omitempty"`
	Landed     bool          `json:"landed,omitempty"`
}

type OddsInfo struct {
	Slot       string  `json:"slot,omitempty"`
	Multiplier float64 `json:"multiplier"`
}

// BannerFrame is the 1 Hz race display frame.
type BannerFrame struct {
	Slots         map[string]SlotBanner `json:"slots"`
	Leader        string                `json:"leader,omitempty"`
	NextUpdateSec int                   `json:"next_update_sec"`
	Degraded      bool                  `json:"degraded"`
	Resolvable    bool                  `json:"resolvable"`
}

type SlotBanner struct {
	Countdown    string  `json:"countdown"`
	RemainingMin float64 `json:"remaining_min"`
	Progress     float64 `json:"progress"`
	Landed       bool    `json:"landed"`
}
