// Package metrics exposes server counters in the Prometheus text format.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"activity-hub/internal/model"
	"activity-hub/internal/statussync"
)

type Metrics struct {
	reg *prometheus.Registry

	syncPasses    *prometheus.CounterVec
	eventsUpdated prometheus.Counter
	membershipOps *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		syncPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activityhub_sync_passes_total",
			Help: "Status sync passes by result.",
		}, []string{"result"}),
		eventsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activityhub_sync_events_updated_total",
			Help: "Events whose stored status was corrected by a sync pass.",
		}),
		membershipOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activityhub_membership_ops_total",
			Help: "Join and leave attempts by outcome.",
		}, []string{"op", "result"}),
	}
	m.reg.MustRegister(
		m.syncPasses,
		m.eventsUpdated,
		m.membershipOps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSync matches statussync.WithObserver.
func (m *Metrics) ObserveSync(updated int, err error) {
	switch {
	case errors.Is(err, statussync.ErrPassInFlight):
		m.syncPasses.WithLabelValues("skipped").Inc()
	case err != nil:
		m.syncPasses.WithLabelValues("error").Inc()
	default:
		m.syncPasses.WithLabelValues("ok").Inc()
		m.eventsUpdated.Add(float64(updated))
	}
}

// ObserveMembership matches membership.WithObserver.
func (m *Metrics) ObserveMembership(op string, err error) {
	m.membershipOps.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case model.IsConflict(err):
		return "conflict"
	}
	return "error"
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
