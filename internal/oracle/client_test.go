package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

const dealBody = `{
	"A": {"id":"a1","callsign":"DAL411","origin":"ATL","etaMinutes":9,"distanceNm":70},
	"B": {"id":"b1","callsign":"JBU202","origin":"BOS","etaMinutes":5,"distanceNm":40}
}`

func TestDealHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("airport"); got != "JFK" {
			t.Errorf("airport = %q", got)
		}
		if got := r.URL.Query().Get("minETA"); got != "3" {
			t.Errorf("minETA = %q", got)
		}
		fmt.Fprint(w, dealBody)
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop().Sugar())
	a, b, err := c.Deal(context.Background(), "JFK")
	if err != nil {
		t.Fatalf("deal: %v", err)
	}
	if a.ID != "a1" || b.ID != "b1" {
		t.Fatalf("dealt %q / %q", a.ID, b.ID)
	}
	if a.Dest != "JFK" || b.Dest != "JFK" {
		t.Fatalf("dest not defaulted: %q / %q", a.Dest, b.Dest)
	}
}

func TestDealWalksCandidateAirports(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Nothing viable at the requested airport; the next candidate pays
		// off.
		if calls.Add(1) == 1 {
			fmt.Fprint(w, `{"A":{"id":"lone","etaMinutes":5}}`)
			return
		}
		fmt.Fprint(w, dealBody)
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop().Sugar())
	a, _, err := c.Deal(context.Background(), "XYZ")
	if err != nil {
		t.Fatalf("deal: %v", err)
	}
	if a.ID != "a1" {
		t.Fatalf("dealt %q", a.ID)
	}
	if calls.Load() < 2 {
		t.Fatalf("did not walk past the empty airport")
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, dealBody)
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop().Sugar())
	if _, _, err := c.Deal(context.Background(), "JFK"); err != nil {
		t.Fatalf("deal after retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestTrackQueryAndParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("track"); got != "a1,b1" {
			t.Errorf("track = %q", got)
		}
		fmt.Fprint(w, `{"tracked":[{"id":"a1","etaMinutes":6.5},{"id":"b1","etaMinutes":2.1}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop().Sugar())
	got, err := c.Track(context.Background(), "JFK", []string{"a1", "b1"})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if got["a1"].ETAMinutes != 6.5 || got["b1"].ETAMinutes != 2.1 {
		t.Fatalf("updates = %+v", got)
	}
}

func TestContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(srv.URL, zap.NewNop().Sugar())
	if _, err := c.Track(ctx, "JFK", []string{"a1"}); err == nil {
		t.Fatalf("cancelled fetch succeeded")
	}
}
