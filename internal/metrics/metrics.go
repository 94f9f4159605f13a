// Package metrics exposes the colony loop to prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Soulycoris/ts-screep/internal/persistence/mirror"
	"github.com/Soulycoris/ts-screep/internal/sim/colony"
)

// Recorder turns tick summaries into prometheus series. It is a colony.Observer.
type Recorder struct {
	reg *prometheus.Registry

	tick        prometheus.Gauge
	ticks       prometheus.Counter
	agents      prometheus.Gauge
	phases      *prometheus.GaugeVec
	transitions prometheus.Counter
	failures    prometheus.Counter
	reaped      prometheus.Counter
	swept       prometheus.Counter
	writes      prometheus.Counter
	duration    prometheus.Histogram
	queues      *prometheus.GaugeVec
	reserved    *prometheus.GaugeVec
}

var _ colony.Observer = (*Recorder)(nil)

func New(colonyID string) *Recorder {
	labels := prometheus.Labels{"colony": colonyID}
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: "colony", Name: name, Help: help, ConstLabels: labels}
	}
	r := &Recorder{
		reg:         prometheus.NewRegistry(),
		tick:        prometheus.NewGauge(prometheus.GaugeOpts(opts("tick", "Last finished tick."))),
		ticks:       prometheus.NewCounter(prometheus.CounterOpts(opts("ticks_total", "Finished ticks."))),
		agents:      prometheus.NewGauge(prometheus.GaugeOpts(opts("agents", "Units stepped in the last tick."))),
		phases:      prometheus.NewGaugeVec(prometheus.GaugeOpts(opts("agents_by_phase", "Units by state machine phase after the last tick.")), []string{"phase"}),
		transitions: prometheus.NewCounter(prometheus.CounterOpts(opts("phase_transitions_total", "Source/target phase flips."))),
		failures:    prometheus.NewCounter(prometheus.CounterOpts(opts("agent_failures_total", "Per-agent failures isolated by the loop."))),
		reaped:      prometheus.NewCounter(prometheus.CounterOpts(opts("reaped_total", "Dead units whose memory was cleaned up."))),
		swept:       prometheus.NewCounter(prometheus.CounterOpts(opts("reservations_swept_total", "Orphaned reservations dropped by the sweep."))),
		writes:      prometheus.NewCounter(prometheus.CounterOpts(opts("memory_writes_total", "Durable memory records flushed."))),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "colony",
			Name:        "tick_duration_seconds",
			Help:        "Wall time of one tick step.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		queues:   prometheus.NewGaugeVec(prometheus.GaugeOpts(opts("queue_length", "Room task queue lengths.")), []string{"room", "queue"}),
		reserved: prometheus.NewGaugeVec(prometheus.GaugeOpts(opts("reservations", "Held positions per room.")), []string{"room"}),
	}
	r.reg.MustRegister(
		r.tick, r.ticks, r.agents, r.phases, r.transitions, r.failures,
		r.reaped, r.swept, r.writes, r.duration, r.queues, r.reserved,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveTick(s colony.Summary) {
	r.tick.Set(float64(s.Tick))
	r.ticks.Inc()
	r.agents.Set(float64(s.Agents))
	r.phases.Reset()
	for phase, n := range s.Phases {
		r.phases.WithLabelValues(phase).Set(float64(n))
	}
	r.transitions.Add(float64(s.Transitions))
	r.failures.Add(float64(len(s.Failures)))
	r.reaped.Add(float64(len(s.Reaped)))
	r.swept.Add(float64(s.Swept))
	r.writes.Add(float64(s.Writes))
	r.duration.Observe(s.Duration.Seconds())
	for _, room := range s.Rooms {
		r.queues.WithLabelValues(room.Name, "spawn").Set(float64(room.SpawnQueue))
		r.queues.WithLabelValues(room.Name, "center").Set(float64(room.CenterQueue))
		r.queues.WithLabelValues(room.Name, "power").Set(float64(room.PowerQueue))
		r.queues.WithLabelValues(room.Name, "transfer").Set(float64(room.TransferQ))
		r.reserved.WithLabelValues(room.Name).Set(float64(room.Reservations))
	}
}

// WatchMirror exports the snapshot mirror counters, read at scrape time.
func (r *Recorder) WatchMirror(m *mirror.Mirror) {
	stat := func(name, help string, vt prometheus.ValueType, f func(mirror.Stats) float64) prometheus.Collector {
		desc := prometheus.NewDesc("colony_mirror_"+name, help, nil, nil)
		return collectorFunc{desc: desc, collect: func(ch chan<- prometheus.Metric) {
			ch <- prometheus.MustNewConstMetric(desc, vt, f(m.Stats()))
		}}
	}
	r.reg.MustRegister(
		stat("queue_depth", "Snapshot uploads waiting.", prometheus.GaugeValue, func(s mirror.Stats) float64 { return float64(s.Queued) }),
		stat("enqueued_total", "Snapshot uploads requested.", prometheus.CounterValue, func(s mirror.Stats) float64 { return float64(s.Enqueued) }),
		stat("dropped_total", "Snapshot uploads dropped on a full queue.", prometheus.CounterValue, func(s mirror.Stats) float64 { return float64(s.Dropped) }),
		stat("uploaded_total", "Snapshot uploads that succeeded.", prometheus.CounterValue, func(s mirror.Stats) float64 { return float64(s.Uploaded) }),
		stat("failed_total", "Snapshot uploads that failed after retries.", prometheus.CounterValue, func(s mirror.Stats) float64 { return float64(s.Failed) }),
	)
}

func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

type collectorFunc struct {
	desc    *prometheus.Desc
	collect func(chan<- prometheus.Metric)
}

func (c collectorFunc) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }
func (c collectorFunc) Collect(ch chan<- prometheus.Metric)  { c.collect(ch) }
