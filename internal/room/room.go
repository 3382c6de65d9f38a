package room

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/flight"
	"github.com/DoyleJ11/diplomats-club/internal/ledger"
	"github.com/DoyleJ11/diplomats-club/internal/oracle"
	"github.com/DoyleJ11/diplomats-club/internal/raceclock"
	"github.com/DoyleJ11/diplomats-club/internal/segment"
	"github.com/DoyleJ11/diplomats-club/internal/store"
	"github.com/DoyleJ11/diplomats-club/pkg/types"
)

// Oracle is the slice of the position oracle the room needs.
type Oracle interface {
	Deal(ctx context.Context, airport string) (flight.Flight, flight.Flight, error)
	Track(ctx context.Context, airport string, ids []string) (map[string]oracle.Update, error)
}

// Deps bundles a room's collaborators.
type Deps struct {
	Store       store.Store
	Oracle      Oracle
	Sim         *flight.Sim // deal-time fallback; nil disables
	Ledger      *ledger.Ledger
	Clock       clockwork.Clock
	Log         *zap.SugaredLogger
	RebaseEvery time.Duration
}

type clientRef struct {
	seat   engine.Seat
	outbox chan Snapshot
}

// Room is the per-room actor: single goroutine, all mutation through the
// inbox. It owns the local projection of the shared document, the segment
// model, the banner, and the race session; the store's change feed and the
// attached websockets are just message sources.
type Room struct {
	inbox chan Msg
	code  string
	deps  Deps

	doc     store.Doc
	version int

	clients map[string]clientRef
	seats   map[engine.Seat]int

	model    *segment.Model
	baseline *segment.Baseline
	rebaser  *segment.Rebaser
	banner   *raceclock.Banner
	session  *raceclock.Session

	flights   map[engine.Slot]*flight.Flight // live bookkeeping copies
	resolving bool
	dealing   bool
	tracking  bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRoom(parent context.Context, doc store.Doc, deps Deps) *Room {
	ctx, cancel := context.WithCancel(parent)

	model := segment.NewModel()
	baseline := segment.NewBaseline()
	r := &Room{
		inbox:    make(chan Msg, 64),
		code:     doc.Code,
		deps:     deps,
		doc:      doc,
		clients:  map[string]clientRef{},
		seats:    map[engine.Seat]int{},
		model:    model,
		baseline: baseline,
		rebaser:  &segment.Rebaser{Model: model, Baseline: baseline},
		banner:   raceclock.NewBanner(model, baseline),
		ctx:      ctx,
		cancel:   cancel,
	}

	// Resume whatever the document says is going on; a process restart
	// mid-race re-enters the running flow from here.
	r.applyDecision(Decide(Flags{Rev: -1}, flagsOf(doc.Rev, doc.State)), doc.State)

	go r.loop()
	go r.watchFeed()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }
func (r *Room) Code() string      { return r.code }

func (r *Room) watchFeed() {
	ch, cancel, err := r.deps.Store.Watch(r.ctx, r.code)
	if err != nil {
		r.deps.Log.Warnw("change feed unavailable, running solo", "room", r.code, "error", err)
		return
	}
	defer cancel()
	for {
		select {
		case <-r.ctx.Done():
			return
		case doc, ok := <-ch:
			if !ok {
				return
			}
			select {
			case r.inbox <- fromFeed{doc: doc}:
			case <-r.ctx.Done():
				return
			}
		}
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = clientRef{seat: msg.Seat, outbox: msg.Outbox}
				r.seats[msg.Seat]++
				msg.Outbox <- r.makeSnapshot(nil, "")

			case Leave:
				if c, ok := r.clients[msg.ClientID]; ok {
					delete(r.clients, msg.ClientID)
					r.seats[c.seat]--
					close(c.outbox)
				}

			case FromClient:
				err := r.handleCommand(msg)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case fromFeed:
				r.handleFeed(msg.doc)

			case tickMsg:
				r.handleTick()

			case rebaseDue:
				r.handleRebaseDue()

			case rebaseResult:
				r.handleRebaseResult(msg)

			case dealResult:
				r.handleDealResult(msg)

			case storeWritten:
				if msg.doc.Rev > r.doc.Rev {
					r.doc.Rev = msg.doc.Rev
					r.doc.Seats = msg.doc.Seats
				}

			case GetState:
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					Rev:        r.doc.Rev,
					State:      r.doc.State,
					Degraded:   r.banner.Degraded(),
					Racing:     r.session != nil,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) shutdown() {
	r.stopSession()
	for id, c := range r.clients {
		close(c.outbox)
		delete(r.clients, id)
	}
	r.cancel()
}

// --- commands ---

func (r *Room) handleCommand(msg FromClient) error {
	cmd := msg.Cmd

	switch cmd.Type {
	case engine.CmdDeal:
		return r.startDeal()

	case engine.CmdPick:
		cmd.At = r.deps.Clock.Now()
		return r.applyLocal(cmd)

	default:
		return r.applyLocal(cmd)
	}
}

// startDeal kicks off the async flight fetch. The engine transition fires
// only once two valid flights are in hand.
func (r *Room) startDeal() error {
	s := r.doc.State
	if s.GameOver {
		return engine.ErrGameOver
	}
	if s.Phase != engine.PhaseIdle {
		return engine.ErrBadPhase
	}
	if r.dealing {
		return nil // already in flight
	}
	r.dealing = true

	airport := s.Airport
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, 45*time.Second)
		defer cancel()

		a, b, err := r.deps.Oracle.Deal(ctx, airport)
		if err != nil && r.deps.Sim != nil {
			r.deps.Log.Warnw("live deal failed, falling back to sim", "room", r.code, "error", err)
			a, b = r.deps.Sim.Deal(airport)
			err = nil
		}
		res := dealResult{a: a, b: b, seed: newSeed(), err: err}
		select {
		case r.inbox <- res:
		case <-r.ctx.Done():
		}
	}()
	return nil
}

func (r *Room) handleDealResult(msg dealResult) {
	r.dealing = false
	if msg.err != nil {
		r.deps.Log.Warnw("deal failed", "room", r.code, "error", msg.err)
		r.broadcast(nil, "no viable flights found, try again")
		return
	}
	err := r.applyLocal(engine.Command{
		Type:    engine.CmdDeal,
		FlightA: msg.a,
		FlightB: msg.b,
		Seed:    msg.seed,
	})
	if err != nil {
		r.deps.Log.Warnw("deal rejected", "room", r.code, "error", err)
	}
}

// applyLocal runs a command through the reducer, adopts the result, and
// publishes it optimistically.
func (r *Room) applyLocal(cmd engine.Command) error {
	prevState := r.doc.State
	events, newState, err := engine.Apply(prevState, cmd)
	if err != nil {
		return err
	}

	prevFlags := flagsOf(r.doc.Rev, prevState)
	r.doc.State = newState
	r.applyDecision(Decide(prevFlags, flagsOf(r.doc.Rev+1, newState)), newState)
	r.handleEvents(prevState, events)
	r.publish()
	r.broadcast(nil, "")
	return nil
}

// handleFeed reconciles a document from the change feed. Duplicates and
// out-of-order snapshots are dropped; everything else is adopted wholesale
// (the store is the source of truth) and diffed to drive the session.
func (r *Room) handleFeed(doc store.Doc) {
	prevFlags := flagsOf(r.doc.Rev, r.doc.State)
	decision := Decide(prevFlags, flagsOf(doc.Rev, doc.State))
	if decision.Ignore {
		return
	}
	r.doc = doc
	r.applyDecision(decision, doc.State)
	r.broadcast(nil, "")
}

// applyDecision translates a sync decision into session side effects. This
// is the only place timers start or stop.
func (r *Room) applyDecision(d Decision, s engine.State) {
	switch {
	case d.NewDeal:
		r.stopSession()
		r.resetRound()
		r.initTracks(s, r.now())

	case d.RaceStarted:
		if r.flights == nil {
			// joined (or restarted) mid-race: build tracks from the doc
			r.initTracks(s, s.RaceStart)
		}
		etas := map[engine.Slot]float64{}
		for slot, f := range s.Flights {
			etas[slot] = f.ETAMinutes
		}
		r.baseline.Init(etas, s.RaceStart)
		r.banner.SetNextUpdate(r.now().Add(r.deps.RebaseEvery))
		r.startSession()
		r.resolving = false

	case d.Continuation:
		// known race, keep baseline and timers exactly as they are

	case d.RoundEnded:
		r.stopSession()
		r.resetRound()
	}
}

func (r *Room) handleEvents(prevState engine.State, events []engine.Event) {
	for _, ev := range events {
		if ev.Type != engine.EvtRoundResolved {
			continue
		}
		r.deps.Log.Infow("round resolved",
			"room", r.code,
			"winner", ev.Winner,
			"slot", ev.WinningSlot,
			"payout", ev.Payout,
			"multiplied", ev.Multiplied,
		)
		r.recordRound(prevState, ev)
	}
}

// recordRound appends the resolution to the ledger, fire-and-forget.
func (r *Room) recordRound(prevState engine.State, ev engine.Event) {
	if r.deps.Ledger == nil {
		return
	}
	rec := ledger.Round{
		RoomCode:    r.code,
		WinnerSeat:  string(ev.Winner),
		WinningSlot: string(ev.WinningSlot),
		CallsignA:   prevState.Flights[engine.SlotA].Callsign,
		CallsignB:   prevState.Flights[engine.SlotB].Callsign,
		ETAMinutesA: prevState.Flights[engine.SlotA].ETAMinutes,
		ETAMinutesB: prevState.Flights[engine.SlotB].ETAMinutes,
		Multiplier:  prevState.Odds.Multiplier,
		Multiplied:  ev.Multiplied,
		Payout:      ev.Payout,
		Seed:        prevState.Seed,
		ResolvedAt:  r.now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.deps.Ledger.RecordRound(ctx, rec); err != nil {
			r.deps.Log.Warnw("ledger write failed", "room", r.code, "error", err)
		}
	}()
}

// --- race session ---

func (r *Room) handleTick() {
	if r.doc.State.Phase != engine.PhaseRacing || r.session == nil {
		return
	}
	now := r.now()
	view, landed := r.banner.Tick(now)
	for _, slot := range landed {
		r.deps.Log.Infow("flight landed", "room", r.code, "slot", slot)
		if f := r.flights[slot]; f != nil {
			f.Landed = true
			f.ETAMinutes = 0
		}
	}
	r.broadcast(bannerFrame(view), "")

	// Only the acting seat's process resolves, and only once.
	if view.Resolvable && !r.resolving && r.seats[r.doc.State.Turn] > 0 {
		r.resolving = true
		if err := r.applyLocal(engine.Command{Type: engine.CmdResolve, Obs: r.banner.Obs(now)}); err != nil {
			if !errors.Is(err, engine.ErrAlreadyResolved) {
				r.deps.Log.Warnw("resolve failed", "room", r.code, "error", err)
			}
		}
	}
}

func (r *Room) handleRebaseDue() {
	s := r.doc.State
	if s.Phase != engine.PhaseRacing || r.flights == nil {
		return
	}
	r.banner.SetNextUpdate(r.now().Add(r.deps.RebaseEvery))
	if r.tracking {
		return // previous refresh still outstanding, keep interpolating
	}
	r.tracking = true

	ids := []string{r.flights[engine.SlotA].ID, r.flights[engine.SlotB].ID}
	airport := s.Airport
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, 30*time.Second)
		defer cancel()
		updates, err := r.deps.Oracle.Track(ctx, airport, ids)
		select {
		case r.inbox <- rebaseResult{updates: updates, err: err}:
		case <-r.ctx.Done():
		}
	}()
}

func (r *Room) handleRebaseResult(msg rebaseResult) {
	r.tracking = false
	if r.doc.State.Phase != engine.PhaseRacing {
		return
	}
	if msg.err != nil {
		r.banner.RecordFailure()
		r.deps.Log.Warnw("rebase fetch failed", "room", r.code, "error", msg.err)
		return
	}
	r.banner.RecordSuccess()

	now := r.now()
	for _, slot := range []engine.Slot{engine.SlotA, engine.SlotB} {
		f := r.flights[slot]
		if f == nil {
			continue
		}
		upd, ok := msg.updates[f.ID]
		if !ok {
			continue
		}
		res := r.rebaser.Ingest(slot, f, segment.Update{Pos: upd.Pos, ETAMinutes: upd.ETAMinutes}, now)
		r.deps.Log.Debugw("rebased",
			"room", r.code,
			"slot", slot,
			"eta", res.AdjustedETA,
			"lowered_by", res.LoweredBy,
		)
	}
	r.broadcast(nil, "")
}

func (r *Room) startSession() {
	r.stopSession()
	r.session = raceclock.StartSession(r.deps.Clock, r.deps.RebaseEvery,
		func() { r.post(tickMsg{}) },
		func() { r.post(rebaseDue{}) },
	)
}

func (r *Room) stopSession() {
	if r.session != nil {
		r.session.Stop()
		r.session = nil
	}
}

func (r *Room) post(m Msg) {
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
	}
}

func (r *Room) resetRound() {
	r.banner.Reset()
	r.baseline.Reset()
	r.flights = nil
	r.resolving = false
}

// initTracks builds segment tracks and live flight copies from the state's
// dealt flights.
func (r *Room) initTracks(s engine.State, at time.Time) {
	r.flights = map[engine.Slot]*flight.Flight{}
	for slot, f := range s.Flights {
		copied := f
		r.flights[slot] = &copied
		dest := flight.DestPos(f.Dest)
		r.model.Reset(slot, dest, f.Pos, f.ETAMinutes, at)
	}
}

// --- publication ---

// publish pushes the local state to the shared store, fire-and-forget.
// Conflicts are logged; the change feed delivers whoever won.
func (r *Room) publish() {
	doc := r.doc
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		written, err := r.deps.Store.Update(ctx, doc)
		if err != nil {
			r.deps.Log.Warnw("store write failed", "room", r.code, "error", err)
			return
		}
		select {
		case r.inbox <- storeWritten{doc: written}:
		case <-r.ctx.Done():
		}
	}()
}

func (r *Room) makeSnapshot(banner *types.BannerFrame, notice string) Snapshot {
	return Snapshot{
		Version: r.version,
		Room:    buildSnapshot(r.displayDoc(), r.banner),
		Banner:  banner,
		Notice:  notice,
	}
}

// displayDoc overlays the live (rebased) flight copies onto the
// authoritative doc for rendering.
func (r *Room) displayDoc() store.Doc {
	doc := r.doc
	if r.flights == nil || doc.State.Phase != engine.PhaseRacing {
		return doc
	}
	flights := map[engine.Slot]flight.Flight{}
	for slot, f := range doc.State.Flights {
		if live := r.flights[slot]; live != nil {
			flights[slot] = *live
		} else {
			flights[slot] = f
		}
	}
	doc.State.Flights = flights
	return doc
}

func (r *Room) broadcast(banner *types.BannerFrame, notice string) {
	r.version++
	snap := r.makeSnapshot(banner, notice)
	for id, c := range r.clients {
		select {
		case c.outbox <- snap:
		default:
			// slow client, drop it
			close(c.outbox)
			delete(r.clients, id)
			r.seats[c.seat]--
		}
	}
}

func (r *Room) now() time.Time { return r.deps.Clock.Now() }

func newSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}
