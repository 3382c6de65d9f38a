package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/diplomats-club/internal/hub"
	"github.com/DoyleJ11/diplomats-club/internal/ledger"
	"github.com/DoyleJ11/diplomats-club/internal/store"
	"github.com/DoyleJ11/diplomats-club/internal/ws"
)

func SetupRoutes(h *hub.Hub, st store.Store, lg *ledger.Ledger, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", CreateRoom(h, st, log))
	r.Post("/rooms/{code}/seats/{seat}", ClaimSeat(st, log))
	r.Get("/rooms/{code}/ledger", RoomLedger(lg, st, log))
	r.Get("/ws", ws.Handler(h, st, log))
	r.Get("/healthz", Healthz)
	return r
}
