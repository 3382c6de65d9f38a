package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/hub"
	"github.com/DoyleJ11/diplomats-club/internal/ledger"
	"github.com/DoyleJ11/diplomats-club/internal/room"
	"github.com/DoyleJ11/diplomats-club/internal/store"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateRoom allocates a fresh code, writes the starting document to the
// shared store, and spins up the local actor.
func CreateRoom(h *hub.Hub, st store.Store, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc store.Doc
		for {
			code, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			doc = store.NewDoc(code, engine.NewState())
			err = st.Create(r.Context(), doc)
			if errors.Is(err, store.ErrExists) {
				log.Debugw("room code collision, regenerating", "code", code)
				continue
			}
			if err != nil {
				log.Warnw("room create failed", "error", err)
				http.Error(w, "failed to create room", http.StatusInternalServerError)
				return
			}
			break
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.CreateRoom{Doc: doc, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to start room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: doc.Code})
	}
}

// ClaimSeat takes a seat in the room document, transactionally: first
// claimant wins, a re-claim by the same player is a no-op.
func ClaimSeat(st store.Store, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		seat := engine.Seat(chi.URLParam(r, "seat"))
		if seat != engine.SeatHost && seat != engine.SeatGuest {
			http.Error(w, "bad seat", http.StatusBadRequest)
			return
		}

		var body struct {
			PlayerID string `json:"player_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PlayerID == "" {
			body.PlayerID = uuid.NewString()
		}

		doc, err := st.ClaimSeat(r.Context(), code, seat, body.PlayerID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "room not found", http.StatusNotFound)
			return
		case errors.Is(err, store.ErrSeatTaken):
			http.Error(w, "seat already claimed", http.StatusConflict)
			return
		case err != nil:
			log.Warnw("seat claim failed", "room", code, "error", err)
			http.Error(w, "claim failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Code     string `json:"code"`
			Seat     string `json:"seat"`
			PlayerID string `json:"player_id"`
			Rev      int64  `json:"rev"`
		}{doc.Code, string(seat), body.PlayerID, doc.Rev})
	}
}

// RoomLedger reports the room's net seat totals across recorded rounds.
// Without a database the history is empty and the totals come back zero.
func RoomLedger(lg *ledger.Ledger, st store.Store, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if _, err := st.Get(r.Context(), code); err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		totals, err := lg.Totals(r.Context(), code)
		if err != nil {
			log.Warnw("ledger totals failed", "room", code, "error", err)
			http.Error(w, "ledger unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Code   string         `json:"code"`
			Totals map[string]int `json:"totals"`
		}{code, totals})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
