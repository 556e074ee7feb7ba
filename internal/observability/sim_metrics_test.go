package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"starcell.sim/internal/sim/world"
)

var _ world.Metrics = (*SimCollector)(nil)

func TestSimCollectorRecordsPass(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	c.ObservePass(3*time.Millisecond, 7, 5)
	c.ObservePass(time.Millisecond, 2, 5)
	c.AddCatchUp("approximate", 100)
	c.AddIncident("raid")
	c.AddAbsorbed("stale_target")
	c.AddDeaths(2)
	c.SetPopulation(40, 12)

	if got := testutil.ToFloat64(c.ZonesUpdated); got != 9 {
		t.Fatalf("zones updated = %v, want 9", got)
	}
	if got := testutil.ToFloat64(c.CatchUpCycles.WithLabelValues("approximate")); got != 100 {
		t.Fatalf("catch-up cycles = %v, want 100", got)
	}
	if got := testutil.ToFloat64(c.Incidents.WithLabelValues("raid")); got != 1 {
		t.Fatalf("raids = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Actors); got != 40 {
		t.Fatalf("actors = %v, want 40", got)
	}
	if count := histogramSampleCount(t, reg, "starcell_pass_duration_seconds"); count != 2 {
		t.Fatalf("pass duration sample_count = %d, want 2", count)
	}
}

func TestSimCollectorReusesRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	a.AddDeaths(1)
	if got := testutil.ToFloat64(b.Deaths); got != 1 {
		t.Fatalf("expected shared counter, got %v", got)
	}
}

func TestSimCollectorNilSafe(t *testing.T) {
	var c *SimCollector
	c.ObservePass(time.Second, 1, 1)
	c.AddCatchUp("ordinary", 1)
	c.SetPopulation(1, 1)
}

func TestSimCollectorHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	c.SetPopulation(3, 1)

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "starcell_actors 3") {
		t.Fatalf("expected actors gauge in exposition, got:\n%s", rr.Body.String())
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name || mf.GetType() != dto.MetricType_HISTOGRAM {
			continue
		}
		for _, m := range mf.Metric {
			if h := m.GetHistogram(); h != nil {
				return h.GetSampleCount()
			}
		}
	}
	return 0
}
