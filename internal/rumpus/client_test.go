package rumpus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
	"github.com/rumpus-tracker/internal/endpoint"
	"github.com/rumpus-tracker/internal/metrics"
	"github.com/rumpus-tracker/internal/query"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(&config.RumpusConfig{
		BaseURL:       srv.URL + "/api",
		DelegationKey: "test-key",
		Timeout:       5 * time.Second,
		UserAgent:     "tracker-test",
	}, testLogger(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.RumpusConfig
		wantErr error
		wantURL string
	}{
		{name: "production default", cfg: config.RumpusConfig{DelegationKey: "k"}, wantURL: config.ProductionBaseURL},
		{name: "beta", cfg: config.RumpusConfig{DelegationKey: "k", Beta: true}, wantURL: config.BetaBaseURL},
		{name: "trailing slash added", cfg: config.RumpusConfig{DelegationKey: "k", BaseURL: "http://localhost:8080/api"}, wantURL: "http://localhost:8080/api/"},
		{name: "empty key", cfg: config.RumpusConfig{}, wantErr: ErrInvalidKey},
		{name: "newline in key", cfg: config.RumpusConfig{DelegationKey: "abc\ndef"}, wantErr: ErrInvalidKey},
		{name: "relative url", cfg: config.RumpusConfig{DelegationKey: "k", BaseURL: "api/"}, wantErr: ErrInvalidBaseURL},
		{name: "unparseable url", cfg: config.RumpusConfig{DelegationKey: "k", BaseURL: "http://[::1"}, wantErr: ErrInvalidBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(&tt.cfg, testLogger())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if c.BaseURL() != tt.wantURL {
				t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), tt.wantURL)
			}
		})
	}
}

func TestPlayers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/levelhead/players" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.RawQuery; got != "userIds=0ihetl&includeAliases=true" {
			t.Errorf("query = %q", got)
		}
		if got := r.Header.Get(DelegationKeyHeader); got != "test-key" {
			t.Errorf("key header = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "tracker-test" {
			t.Errorf("user agent = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":[{"_id":"1","userId":"0ihetl","createdAt":"a","updatedAt":"b",
			"stats":{"Subscribers":1,"PlayTime":2,"Crowns":3,"Shoes":-1,"NumFollowing":4}}]}`)
	})

	q, _ := query.NewPlayerSearch().UserIDs("0ihetl")
	players, err := c.Players(context.Background(), q.IncludeAliases(true))
	if err != nil {
		t.Fatalf("Players: %v", err)
	}
	if len(players) != 1 || players[0].Stats.Shoes != -1 {
		t.Errorf("unexpected players %+v", players)
	}
}

func TestLevels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/levelhead/levels" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"data":[]}`)
	})

	levels, err := c.Levels(context.Background(), query.NewLevelSearch())
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	if len(levels) != 0 {
		t.Errorf("expected no levels, got %d", len(levels))
	}
}

func TestDelegationKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/delegation/keys/@this" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"data":{"userId":"u1","passId":"p1","permissions":["read"]}}`)
	})

	info, err := c.DelegationKey(context.Background())
	if err != nil {
		t.Fatalf("DelegationKey: %v", err)
	}
	if info.UserID != "u1" || len(info.Permissions) != 1 {
		t.Errorf("unexpected key info %+v", info)
	}
}

func TestStatusError(t *testing.T) {
	m := metrics.NewCollector()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"Invalid delegation key"}`)
	}, WithMetrics(m))

	_, err := Fetch(context.Background(), c, endpoint.DelegationKey())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if te.StatusCode != http.StatusUnauthorized || te.Message != "Invalid delegation key" {
		t.Errorf("unexpected error %+v", te)
	}

	body := `rumpus_client_requests_total{endpoint="delegation_key",outcome="status_error"} 1`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader("# HELP rumpus_client_requests_total API requests by endpoint and outcome.\n# TYPE rumpus_client_requests_total counter\n"+body+"\n"), "rumpus_client_requests_total"); err != nil {
		t.Errorf("metrics: %v", err)
	}
}

func TestStatusErrorWithoutEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := c.Levels(context.Background(), query.NewLevelSearch())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if te.Message != http.StatusText(http.StatusBadGateway) {
		t.Errorf("Message = %q", te.Message)
	}
}

func TestDecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"_id":`)
	})

	_, err := c.Players(context.Background(), query.NewPlayerSearch())
	var de *domain.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *domain.DecodeError, got %v", err)
	}
}

func TestNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":"nothing here"}`)
	})

	_, err := c.Players(context.Background(), query.NewPlayerSearch())
	if !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestRequestFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(&config.RumpusConfig{BaseURL: srv.URL, DelegationKey: "k"}, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.DelegationKey(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if te.StatusCode != 0 || te.Cause == nil {
		t.Errorf("unexpected error %+v", te)
	}
}

func TestSingleRequest(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := c.Levels(context.Background(), query.NewLevelSearch()); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want exactly 1", n)
	}
}
