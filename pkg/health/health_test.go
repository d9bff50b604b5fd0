package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/resilience"
)

func TestRunWorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"empty", nil, StatusUp},
		{"all up", map[string]Check{
			"store": PingCheck(func(context.Context) error { return nil }),
		}, StatusUp},
		{"optional missing", map[string]Check{
			"store": PingCheck(func(context.Context) error { return nil }),
			"cache": PingCheck(nil),
		}, StatusDegraded},
		{"down beats degraded", map[string]Check{
			"store": PingCheck(func(context.Context) error { return errors.New("refused") }),
			"cache": PingCheck(nil),
		}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(0)
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, report.Status)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("expected %d components, got %d", len(tt.checks), len(report.Components))
			}
		})
	}
}

func TestBreakerCheck(t *testing.T) {
	for state, want := range map[resilience.State]Status{
		resilience.StateClosed:   StatusUp,
		resilience.StateHalfOpen: StatusDegraded,
		resilience.StateOpen:     StatusDown,
	} {
		got := BreakerCheck(func() resilience.State { return state })(context.Background())
		if got.Status != want {
			t.Errorf("%s: expected %s, got %s", state, want, got.Status)
		}
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker(0)
	c.Register("cache", PingCheck(nil))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("degraded should stay ready, got %d", rec.Code)
	}

	c.Register("store", BreakerCheck(func() resilience.State { return resilience.StateOpen }))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Components["store"].Status != StatusDown {
		t.Errorf("unexpected store component: %+v", report.Components["store"])
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker(0).LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
