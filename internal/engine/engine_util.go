package engine

// NewState is the document every fresh room starts from: host to act first,
// default bet, JFK arrivals.
func NewState() State {
	return State{
		Phase:   PhaseIdle,
		Turn:    SeatHost,
		Airport: "JFK",
		Bet:     DefaultBet,
		Owners:  map[Slot]Seat{},
		Bankrolls: map[Seat]int{
			SeatHost:  StartBankrollHost,
			SeatGuest: StartBankrollGuest,
		},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
