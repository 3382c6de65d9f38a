package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/hub"
	"github.com/DoyleJ11/diplomats-club/internal/room"
	"github.com/DoyleJ11/diplomats-club/internal/store"
	"github.com/DoyleJ11/diplomats-club/pkg/types"
)

func Handler(h *hub.Hub, st store.Store, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		seat, ok := parseSeat(r.URL.Query().Get("seat"))
		if !ok {
			http.Error(w, "missing or bad seat", http.StatusBadRequest)
			return
		}

		doc, err := st.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.EnsureRoom{Doc: doc, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "room unavailable", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debugw("websocket accept failed", "room", code, "error", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan room.Snapshot, 8)
		clientID := uuid.NewString()

		rm.Inbox() <- room.Join{ClientID: clientID, Seat: seat, Outbox: out}
		defer func() { rm.Inbox() <- room.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{
					Type:    "StateSnapshot",
					Version: snap.Version,
					Room:    &snap.Room,
					Banner:  snap.Banner,
					Notice:  snap.Notice,
				}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			cmd, ok := toCommand(cm, seat)
			if !ok {
				writeError(r.Context(), conn, "unknown type")
				continue
			}

			replyCh := make(chan error, 1)
			rm.Inbox() <- room.FromClient{PlayerID: clientID, Cmd: cmd, Reply: replyCh}
			if err := <-replyCh; err != nil {
				// rule rejections surface as brief inline notices
				writeNotice(r.Context(), conn, err.Error())
			}
		}
	}
}

func toCommand(m types.ClientMessage, seat engine.Seat) (engine.Command, bool) {
	switch m.Type {
	case "SetBet":
		return engine.Command{Type: engine.CmdSetBet, Seat: seat, Amount: m.Amount}, true
	case "AllIn":
		return engine.Command{Type: engine.CmdAllIn, Seat: seat}, true
	case "SetAirport":
		return engine.Command{Type: engine.CmdSetAirport, Seat: seat, Airport: m.Airport}, true
	case "Deal":
		return engine.Command{Type: engine.CmdDeal, Seat: seat}, true
	case "Pick":
		slot := engine.Slot(m.Slot)
		return engine.Command{Type: engine.CmdPick, Seat: seat, Slot: slot}, true
	default:
		return engine.Command{}, false
	}
}

func parseSeat(s string) (engine.Seat, bool) {
	switch s {
	case "host":
		return engine.SeatHost, true
	case "guest":
		return engine.SeatGuest, true
	default:
		return "", false
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: msg})
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

func writeNotice(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Notice", Notice: msg})
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
