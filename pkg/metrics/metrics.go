// Copyright 2025 Basis Protocol
//
// Package metrics exposes the coordinator's Prometheus instrumentation:
// notes accepted/rejected by failure kind, the current tree generation,
// commitment publish attempts/successes, and journal replay duration.
// Grounded on the donor pack's own-registry-and-gauges shape (e.g.
// orbas1-Synnergy's core.HealthLogger, which builds a private
// *prometheus.Registry and a handful of named Gauge/Counter fields
// rather than using the global DefaultRegisterer) — this module follows
// the same shape so an external HTTP façade (out of scope here, per
// spec §1) can serve the registry without this package standing up its
// own handler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric this module emits, behind its own
// *prometheus.Registry rather than the global default one.
type Registry struct {
	reg *prometheus.Registry

	notesAccepted   prometheus.Counter
	notesRejected   *prometheus.CounterVec
	treeGeneration  prometheus.Gauge
	commitAttempts  prometheus.Counter
	commitSuccesses prometheus.Counter
	replayDuration  prometheus.Histogram
}

// New builds a fresh Registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		notesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "basistracker_notes_accepted_total",
			Help: "Total debt notes accepted by the coordinator.",
		}),
		notesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "basistracker_notes_rejected_total",
			Help: "Total debt notes rejected, by failure kind.",
		}, []string{"tag"}),
		treeGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "basistracker_tree_generation",
			Help: "Number of accepted tree mutations since process start.",
		}),
		commitAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "basistracker_commitment_publish_attempts_total",
			Help: "Total CommitmentPublisher tick attempts that built a transaction.",
		}),
		commitSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "basistracker_commitment_publish_success_total",
			Help: "Total CommitmentPublisher submissions the host chain client accepted.",
		}),
		replayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "basistracker_journal_replay_seconds",
			Help: "Duration of PersistentLog recovery replay on startup.",
		}),
	}
	reg.MustRegister(
		m.notesAccepted, m.notesRejected, m.treeGeneration,
		m.commitAttempts, m.commitSuccesses, m.replayDuration,
	)
	return m
}

// Registry returns the underlying *prometheus.Registry for an external
// caller to serve (e.g. via promhttp.HandlerFor) — this package never
// stands up its own HTTP listener, since the HTTP façade is out of scope.
func (m *Registry) Registry() *prometheus.Registry { return m.reg }

// NoteAccepted records one accepted AddNote call and bumps the tree
// generation counter.
func (m *Registry) NoteAccepted() {
	if m == nil {
		return
	}
	m.notesAccepted.Inc()
	m.treeGeneration.Inc()
}

// NoteRejected records one rejected AddNote call under tag.
func (m *Registry) NoteRejected(tag string) {
	if m == nil {
		return
	}
	m.notesRejected.WithLabelValues(tag).Inc()
}

// CommitAttempt records one CommitmentPublisher tick that built and
// submitted a transaction (ticks that skip because the root is unchanged
// are not attempts).
func (m *Registry) CommitAttempt() {
	if m == nil {
		return
	}
	m.commitAttempts.Inc()
}

// CommitSuccess records one successful submission.
func (m *Registry) CommitSuccess() {
	if m == nil {
		return
	}
	m.commitSuccesses.Inc()
}

// ObserveReplayDuration records how long journal recovery took.
func (m *Registry) ObserveReplayDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.replayDuration.Observe(d.Seconds())
}
