package matchapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yannisouraghi/nexra-vision/internal/config"
	"github.com/yannisouraghi/nexra-vision/internal/logging"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	l, err := logging.NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestReconciles_ToleranceBoundary(t *testing.T) {
	sessionStart := time.UnixMilli(1_700_000_000_000)
	tolerance := 5 * time.Minute

	tests := []struct {
		name   string
		offset int64 // match timestamp relative to sessionStart, ms
		want   bool
	}{
		{"just inside tolerance", -299_999, true},
		{"exactly at cutoff", -300_000, false},
		{"just outside tolerance", -300_001, false},
		{"after session start", +1_195_000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MatchRecord{MatchID: "m1", Timestamp: sessionStart.UnixMilli() + tt.offset}
			if got := Reconciles(m, sessionStart, tolerance); got != tt.want {
				t.Errorf("Reconciles(offset=%d) = %v, want %v", tt.offset, got, tt.want)
			}
		})
	}
}

func TestReconciles_NilMatch(t *testing.T) {
	if Reconciles(nil, time.Now(), 5*time.Minute) {
		t.Error("nil match must not reconcile")
	}
}

func newInstantFetcher(client *Client, log *logging.Logger) *Fetcher {
	f := NewFetcher(client, 30*time.Second, 5*time.Minute, log)
	f.sleep = func(ctx context.Context, d time.Duration) {}
	return f
}

func TestFetch_AcceptsFreshMatch(t *testing.T) {
	sessionStart := time.Now()
	ts := sessionStart.Add(-time.Minute).UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"success":true,"data":[{"matchId":"NA_123","duration":1205,"timestamp":%d}]}`, ts)
	}))
	defer srv.Close()

	f := newInstantFetcher(NewClient(srv.URL, time.Second), newTestLogger(t))
	m := f.Fetch(context.Background(), "acct-1", "na", sessionStart)
	if m == nil {
		t.Fatal("Fetch returned nil, want the fresh match")
	}
	if m.MatchID != "NA_123" || m.DurationSeconds != 1205 {
		t.Errorf("match = %+v", m)
	}
}

func TestFetch_RejectsStaleMatch(t *testing.T) {
	sessionStart := time.Now()
	ts := sessionStart.Add(-6 * time.Minute).UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"success":true,"data":[{"matchId":"NA_OLD","timestamp":%d}]}`, ts)
	}))
	defer srv.Close()

	f := newInstantFetcher(NewClient(srv.URL, time.Second), newTestLogger(t))
	if m := f.Fetch(context.Background(), "acct-1", "na", sessionStart); m != nil {
		t.Errorf("Fetch = %+v, want nil for a stale match", m)
	}
}

func TestFetch_UnlinkedAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an unlinked account")
	}))
	defer srv.Close()

	f := newInstantFetcher(NewClient(srv.URL, time.Second), newTestLogger(t))
	if m := f.Fetch(context.Background(), "", "na", time.Now()); m != nil {
		t.Errorf("Fetch = %+v, want nil", m)
	}
}

func TestFetch_RequestFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newInstantFetcher(NewClient(srv.URL, time.Second), newTestLogger(t))
	if m := f.Fetch(context.Background(), "acct-1", "na", time.Now()); m != nil {
		t.Errorf("Fetch = %+v, want nil on request failure", m)
	}
}

func TestClient_Timeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("matchId"); got != "NA_123" {
			t.Errorf("matchId = %q", got)
		}
		fmt.Fprint(w, `{"success":true,"data":{
			"clips":[{"type":"death","severity":"high","startTime":62.5,"duration":20,"description":"first blood"}],
			"events":[{"type":"objective","timestamp":900,"description":"dragon"}]}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	tl, err := c.Timeline(context.Background(), "NA_123", "acct-1", "na")
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if len(tl.Clips) != 1 || tl.Clips[0].StartTime != 62.5 {
		t.Errorf("clips = %+v", tl.Clips)
	}
	if len(tl.Events) != 1 || tl.Events[0].Type != "objective" {
		t.Errorf("events = %+v", tl.Events)
	}
}

func TestClient_EnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"error":"account not found"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.LatestMatch(context.Background(), "nobody", "na"); err == nil {
		t.Error("LatestMatch should surface the envelope error")
	}
}
