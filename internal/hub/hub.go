package hub

import (
	"context"

	"github.com/DoyleJ11/diplomats-club/internal/room"
	"github.com/DoyleJ11/diplomats-club/internal/store"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Doc   store.Doc
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

// EnsureRoom returns the running actor for a code, creating it from Doc if
// this process isn't hosting it yet (reconnects, second seat joining).
type EnsureRoom struct {
	Doc   store.Doc
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub owns this process's running room actors, keyed by room code.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	deps   room.Deps
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, deps room.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if rm := h.rooms[msg.Doc.Code]; rm != nil {
					msg.Reply <- rm
					break
				}
				rm := room.NewRoom(h.ctx, msg.Doc, h.deps)
				h.rooms[msg.Doc.Code] = rm
				msg.Reply <- rm

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // may be nil

			case EnsureRoom:
				if rm := h.rooms[msg.Doc.Code]; rm != nil {
					msg.Reply <- rm
					break
				}
				rm := room.NewRoom(h.ctx, msg.Doc, h.deps)
				h.rooms[msg.Doc.Code] = rm
				msg.Reply <- rm

			case RemoveRoom:
				delete(h.rooms, msg.Code)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Inbox() <- room.Shutdown{}
	}
	clear(h.rooms)
	h.cancel()
}
