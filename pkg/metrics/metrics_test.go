package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JaimeStill/moltblock/pkg/metrics"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := metrics.NewPrometheus(reg)

	p.RunCompleted(metrics.OutcomePassed, 2*time.Second)
	p.RunCompleted(metrics.OutcomeFailed, time.Second)
	p.RunCompleted(metrics.OutcomePassed, time.Second)
	p.NodeCompleted("generator", time.Second, nil)
	p.NodeCompleted("critic", time.Second, errors.New("boom"))
	p.MoltDecision(false)

	expected := `
# HELP moltblock_runs_total Completed pipeline runs by outcome
# TYPE moltblock_runs_total counter
moltblock_runs_total{outcome="failed"} 1
moltblock_runs_total{outcome="passed"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "moltblock_runs_total"); err != nil {
		t.Error(err)
	}

	expected = `
# HELP moltblock_nodes_errors_total Agent node failures by role
# TYPE moltblock_nodes_errors_total counter
moltblock_nodes_errors_total{role="critic"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "moltblock_nodes_errors_total"); err != nil {
		t.Error(err)
	}

	if n := testutil.CollectAndCount(reg, "moltblock_nodes_duration_seconds"); n != 2 {
		t.Errorf("node latency series = %d, want 2", n)
	}
	if n := testutil.CollectAndCount(reg, "moltblock_governance_molt_decisions_total"); n != 1 {
		t.Errorf("molt decision series = %d, want 1", n)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewPrometheus(reg).RunCompleted(metrics.OutcomeError, time.Second)

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `moltblock_runs_total{outcome="error"} 1`) {
		t.Errorf("body missing run counter:\n%s", rec.Body.String())
	}
}

func TestNoopSatisfiesRecorder(t *testing.T) {
	var r metrics.Recorder = metrics.Noop{}
	r.RunCompleted(metrics.OutcomePassed, time.Second)
	r.NodeCompleted("judge", time.Second, errors.New("x"))
	r.MoltDecision(true)
}
