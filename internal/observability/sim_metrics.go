package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector exposes simulation Prometheus metrics. It implements
// world.Metrics; a nil collector drops every observation.
type SimCollector struct {
	gatherer prometheus.Gatherer

	PassDuration   prometheus.Histogram
	ZonesUpdated   prometheus.Counter
	MandatoryZones prometheus.Gauge
	CatchUpCycles  *prometheus.CounterVec
	CatchUps       *prometheus.CounterVec
	Incidents      *prometheus.CounterVec
	Absorbed       *prometheus.CounterVec
	Deaths         prometheus.Counter
	Actors         prometheus.Gauge
	Zones          prometheus.Gauge
}

// NewSimCollector registers simulation metrics against the provided registerer.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &SimCollector{gatherer: gatherer}
	var err error

	if c.PassDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "starcell_pass_duration_seconds",
		Help:    "Wall time of one zone scheduling pass.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}), "starcell_pass_duration_seconds"); err != nil {
		return nil, err
	}
	if c.ZonesUpdated, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "starcell_zones_updated_total",
		Help: "Zone updates performed by the scheduler.",
	}), "starcell_zones_updated_total"); err != nil {
		return nil, err
	}
	if c.MandatoryZones, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "starcell_mandatory_zones",
		Help: "Zones within the mandatory radius in the last pass.",
	}), "starcell_mandatory_zones"); err != nil {
		return nil, err
	}
	if c.CatchUps, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starcell_catchups_total",
		Help: "Catch-up simulations by mode.",
	}, []string{"mode"}), "starcell_catchups_total"); err != nil {
		return nil, err
	}
	if c.CatchUpCycles, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starcell_catchup_cycles_total",
		Help: "Catch-up cycles simulated by mode.",
	}, []string{"mode"}), "starcell_catchup_cycles_total"); err != nil {
		return nil, err
	}
	if c.Incidents, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starcell_incidents_total",
		Help: "Catch-up incidents by kind.",
	}, []string{"kind"}), "starcell_incidents_total"); err != nil {
		return nil, err
	}
	if c.Absorbed, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starcell_absorbed_errors_total",
		Help: "Per-actor errors absorbed by the simulation, by kind.",
	}, []string{"kind"}), "starcell_absorbed_errors_total"); err != nil {
		return nil, err
	}
	if c.Deaths, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "starcell_actor_deaths_total",
		Help: "Actors removed by death.",
	}), "starcell_actor_deaths_total"); err != nil {
		return nil, err
	}
	if c.Actors, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "starcell_actors",
		Help: "Live actors across all zones.",
	}), "starcell_actors"); err != nil {
		return nil, err
	}
	if c.Zones, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "starcell_zones",
		Help: "Generated zones.",
	}), "starcell_zones"); err != nil {
		return nil, err
	}
	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler serves the collector's gatherer in the exposition format.
func (c *SimCollector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *SimCollector) ObservePass(d time.Duration, zones, mandatory int) {
	if c == nil {
		return
	}
	c.PassDuration.Observe(d.Seconds())
	c.ZonesUpdated.Add(float64(zones))
	c.MandatoryZones.Set(float64(mandatory))
}

func (c *SimCollector) AddCatchUp(mode string, cycles int) {
	if c == nil {
		return
	}
	c.CatchUps.WithLabelValues(mode).Inc()
	c.CatchUpCycles.WithLabelValues(mode).Add(float64(cycles))
}

func (c *SimCollector) AddIncident(kind string) {
	if c == nil {
		return
	}
	c.Incidents.WithLabelValues(kind).Inc()
}

func (c *SimCollector) AddAbsorbed(kind string) {
	if c == nil {
		return
	}
	c.Absorbed.WithLabelValues(kind).Inc()
}

func (c *SimCollector) AddDeaths(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.Deaths.Add(float64(n))
}

func (c *SimCollector) SetPopulation(actors, zones int) {
	if c == nil {
		return
	}
	c.Actors.Set(float64(actors))
	c.Zones.Set(float64(zones))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
