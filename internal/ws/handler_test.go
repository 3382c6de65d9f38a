package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
	"github.com/DoyleJ11/diplomats-club/internal/flight"
	"github.com/DoyleJ11/diplomats-club/internal/hub"
	"github.com/DoyleJ11/diplomats-club/internal/oracle"
	"github.com/DoyleJ11/diplomats-club/internal/room"
	"github.com/DoyleJ11/diplomats-club/internal/store"
	"github.com/DoyleJ11/diplomats-club/pkg/types"
)

func testEndpoint(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	log := zap.NewNop().Sugar()
	st := store.NewMemory()
	sim := flight.NewSim(nil)
	clock := clockwork.NewRealClock()

	doc := store.NewDoc("WSROOM", engine.NewState())
	if err := st.Create(ctx, doc); err != nil {
		t.Fatalf("create doc: %v", err)
	}

	h := hub.NewHub(ctx, room.Deps{
		Store:       st,
		Oracle:      oracle.NewSimClient(sim, clock),
		Sim:         sim,
		Clock:       clock,
		Log:         log,
		RebaseEvery: 45 * time.Second,
	})

	srv := httptest.NewServer(Handler(h, st, log))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, "WSROOM"
}

func dialRoom(t *testing.T, srv *httptest.Server, code, seat string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?code=" + code + "&seat=" + seat
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg types.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func TestConnectDeliversSnapshot(t *testing.T) {
	srv, code := testEndpoint(t)
	conn := dialRoom(t, srv, code, "host")
	defer conn.Close(websocket.StatusNormalClosure, "")

	msg := readMessage(t, conn)
	if msg.Type != "StateSnapshot" || msg.Room == nil {
		t.Fatalf("first message = %+v", msg)
	}
	if msg.Room.Code != code || msg.Room.Phase != "idle" {
		t.Fatalf("room = %+v", msg.Room)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	srv, code := testEndpoint(t)
	conn := dialRoom(t, srv, code, "host")
	defer conn.Close(websocket.StatusNormalClosure, "")

	readMessage(t, conn) // initial snapshot

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	payload, _ := json.Marshal(types.ClientMessage{Type: "SetBet", Amount: 200})
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msg := readMessage(t, conn)
		if msg.Type == "StateSnapshot" && msg.Room != nil && msg.Room.Bet == 200 {
			return
		}
	}
	t.Fatalf("bet change never broadcast")
}

func TestRejectedCommandYieldsNotice(t *testing.T) {
	srv, code := testEndpoint(t)
	conn := dialRoom(t, srv, code, "guest")
	defer conn.Close(websocket.StatusNormalClosure, "")

	readMessage(t, conn) // initial snapshot

	// Picking with nothing dealt violates the phase rules.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	payload, _ := json.Marshal(types.ClientMessage{Type: "Pick", Slot: "A"})
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msg := readMessage(t, conn)
		if msg.Type == "Notice" && msg.Notice != "" {
			return
		}
	}
	t.Fatalf("no notice for rejected command")
}

func TestBadJSONYieldsError(t *testing.T) {
	srv, code := testEndpoint(t)
	conn := dialRoom(t, srv, code, "host")
	defer conn.Close(websocket.StatusNormalClosure, "")

	readMessage(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte("{nope")); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msg := readMessage(t, conn)
		if msg.Type == "Error" {
			return
		}
	}
	t.Fatalf("no error for bad json")
}

func TestRejectsMissingQueryParams(t *testing.T) {
	srv, code := testEndpoint(t)

	for _, path := range []string{"?seat=host", "?code=" + code, "?code=" + code + "&seat=dealer"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "?code=NOROOM&seat=host")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown room status = %d", resp.StatusCode)
	}
}
