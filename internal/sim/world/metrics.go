package world

import "time"

// Metrics receives per-pass telemetry. internal/observability provides the
// Prometheus implementation.
type Metrics interface {
	ObservePass(d time.Duration, zones, mandatory int)
	AddCatchUp(mode string, cycles int)
	AddIncident(kind string)
	AddAbsorbed(kind string)
	AddDeaths(n int)
	SetPopulation(actors, zones int)
}

type nopMetrics struct{}

func (nopMetrics) ObservePass(time.Duration, int, int) {}
func (nopMetrics) AddCatchUp(string, int)              {}
func (nopMetrics) AddIncident(string)                  {}
func (nopMetrics) AddAbsorbed(string)                  {}
func (nopMetrics) AddDeaths(int)                       {}
func (nopMetrics) SetPopulation(int, int)              {}
