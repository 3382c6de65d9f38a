package room

import (
	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/flight"
	"github.com/DoyleJ11/diplomats-club/internal/oracle"
	"github.com/DoyleJ11/diplomats-club/internal/store"
	"github.com/DoyleJ11/diplomats-club/pkg/types"
)

type Msg interface{ isRoomMsg() }

// FromClient carries a player command. Reply, when non-nil, receives the
// rule-check result so the edge can show an inline notice; rejected commands
// are otherwise silent no-ops.
type FromClient struct {
	PlayerID string
	Cmd      engine.Command
	Reply    chan error
}

func (FromClient) isRoomMsg() {}

type Join struct {
	ClientID string
	Seat     engine.Seat
	Outbox   chan Snapshot
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// GetState reflects internal state without data races (test hook).
type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

// View is the test-visible projection of a room.
type View struct {
	Version    int
	NumClients int
	Rev        int64
	State      engine.State
	Degraded   bool
	Racing     bool
}

// Snapshot is what attached clients receive: the redacted room plus, while
// racing, the current banner frame.
type Snapshot struct {
	Version int
	Room    types.RoomSnapshot
	Banner  *types.BannerFrame
	Notice  string
}

// internal messages

type fromFeed struct{ doc store.Doc }

func (fromFeed) isRoomMsg() {}

type tickMsg struct{}

func (tickMsg) isRoomMsg() {}

type rebaseDue struct{}

func (rebaseDue) isRoomMsg() {}

type rebaseResult struct {
	updates map[string]oracle.Update
	err     error
}

func (rebaseResult) isRoomMsg() {}

type dealResult struct {
	a, b flight.Flight
	seed int64
	err  error
}

func (dealResult) isRoomMsg() {}

type storeWritten struct{ doc store.Doc }

func (storeWritten) isRoomMsg() {}
