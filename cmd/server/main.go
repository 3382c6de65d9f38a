package main

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/diplomats-club/internal/config"
	"github.com/DoyleJ11/diplomats-club/internal/flight"
	"github.com/DoyleJ11/diplomats-club/internal/httpapi"
	"github.com/DoyleJ11/diplomats-club/internal/hub"
	"github.com/DoyleJ11/diplomats-club/internal/ledger"
	"github.com/DoyleJ11/diplomats-club/internal/oracle"
	"github.com/DoyleJ11/diplomats-club/internal/room"
	"github.com/DoyleJ11/diplomats-club/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	cfg := config.Load()
	ctx := context.Background()
	clock := clockwork.NewRealClock()
	sim := flight.NewSim(nil)

	var st store.Store
	if cfg.MongoURI != "" {
		db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalw("mongo connect failed", "error", err)
		}
		st = store.NewMongo(db, log)
		log.Infow("using mongo room store", "db", cfg.MongoDB)
	} else {
		st = store.NewMemory()
		log.Info("using in-memory room store")
	}

	var orc room.Oracle
	if cfg.SimMode || cfg.OracleBaseURL == "" {
		orc = oracle.NewSimClient(sim, clock)
		log.Info("sim mode: dealing simulated flights")
	} else {
		orc = oracle.New(cfg.OracleBaseURL, log)
	}

	var lg *ledger.Ledger
	if cfg.PostgresDSN != "" {
		var err error
		lg, err = ledger.Open(cfg.PostgresDSN, log)
		if err != nil {
			log.Fatalw("ledger open failed", "error", err)
		}
	}

	h := hub.NewHub(ctx, room.Deps{
		Store:       st,
		Oracle:      orc,
		Sim:         sim,
		Ledger:      lg,
		Clock:       clock,
		Log:         log,
		RebaseEvery: cfg.RebaseEvery,
	})

	handler := httpapi.SetupRoutes(h, st, lg, log)

	log.Infow("listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalw("server exited", "error", err)
	}
}
