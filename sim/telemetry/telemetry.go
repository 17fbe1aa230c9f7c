// Package telemetry publishes per-tick population summaries as Prometheus
// gauges and writes them to a node-exporter textfile at the end of a run.
package telemetry

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plasmid-sim/plasmid-sim/sim"
)

const namespace = "plasmid_sim"

// fitnessBins is the number of equal-width host fitness bins over [0, 1].
const fitnessBins = 10

// Collector holds the gauges of one run in its own registry.
type Collector struct {
	registry *prometheus.Registry
	path     string

	tick           prometheus.Gauge
	hosts          *prometheus.GaugeVec
	plasmids       prometheus.Gauge
	diversity      *prometheus.GaugeVec
	resistance     *prometheus.GaugeVec
	meanFitness    prometheus.Gauge
	fitnessBuckets *prometheus.GaugeVec
	events         *prometheus.CounterVec
}

// NewCollector creates a collector. When path is non-empty Finish writes the
// registry to it in the text exposition format.
func NewCollector(path string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		path:     path,
		tick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tick", Help: "Number of completed ticks.",
		}),
		hosts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "hosts", Help: "Living hosts by plasmid carriage.",
		}, []string{"carriage"}),
		plasmids: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "plasmids", Help: "Plasmid instances across all hosts.",
		}),
		diversity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "diversity", Help: "Distinct values present by kind.",
		}, []string{"kind"}),
		resistance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "resistance", Help: "Resistance plasmids and resistant hosts.",
		}, []string{"unit"}),
		meanFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "host_fitness_mean", Help: "Mean host fitness.",
		}),
		fitnessBuckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "host_fitness_hosts", Help: "Hosts per fitness bin (not cumulative), labelled by bin upper bound.",
		}, []string{"upper"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_total", Help: "Events applied since setup.",
		}, []string{"event"}),
	}
	c.registry.MustRegister(c.tick, c.hosts, c.plasmids, c.diversity, c.resistance,
		c.meanFitness, c.fitnessBuckets, c.events)
	return c
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveTick updates every gauge from the summary and adds the tick's
// event counts. Tick 0 carries no events.
func (c *Collector) ObserveTick(_ context.Context, st *sim.State, s sim.Summary) error {
	c.tick.Set(float64(s.Tick))
	c.hosts.WithLabelValues("plasmid_free").Set(float64(s.Fc))
	c.hosts.WithLabelValues("plasmid_bearing").Set(float64(s.Pc))
	c.plasmids.Set(float64(s.PlasmidCount))
	c.diversity.WithLabelValues("inc").Set(float64(s.IncDiv))
	c.diversity.WithLabelValues("plasmid").Set(float64(s.PlasmidDiv))
	c.diversity.WithLabelValues("host_load").Set(float64(s.PlasmidHostDiv))
	c.resistance.WithLabelValues("plasmids").Set(float64(s.ARP))
	c.resistance.WithLabelValues("hosts").Set(float64(s.ARB))
	c.meanFitness.Set(s.MeanFitness)
	for i, n := range s.FitnessHistogram(fitnessBins) {
		upper := strconv.FormatFloat(float64(i+1)/fitnessBins, 'f', 1, 64)
		c.fitnessBuckets.WithLabelValues(upper).Set(float64(n))
	}

	if s.Tick > 0 {
		ev := st.Events
		c.events.WithLabelValues("lysis").Add(float64(ev.Lysis))
		c.events.WithLabelValues("fission").Add(float64(ev.Fission))
		c.events.WithLabelValues("fission_blocked").Add(float64(ev.FissionBlocked))
		c.events.WithLabelValues("segregation_loss").Add(float64(ev.SegregationLoss))
		c.events.WithLabelValues("incompatibility_discard").Add(float64(ev.IncompatibilityDiscards))
		c.events.WithLabelValues("transfer").Add(float64(ev.TransferAccepted))
		c.events.WithLabelValues("transfer_rejected").Add(float64(ev.TransferAttempts() - ev.TransferAccepted))
		c.events.WithLabelValues("immigration").Add(float64(ev.Immigration))
	}
	return nil
}

// Finish writes the textfile when a path was configured.
func (c *Collector) Finish(_ context.Context, _ *sim.State, _ sim.Summary, _ sim.StopReason) error {
	if c.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(c.path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
