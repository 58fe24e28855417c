// Package prom implements metrics.Recorder on Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/tracescope/internal/metrics"
)

var defaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

type recorder struct {
	actionsTotal       *prometheus.CounterVec
	handlerErrorsTotal *prometheus.CounterVec
	storeUpdatesTotal  *prometheus.CounterVec
	navigationsTotal   *prometheus.CounterVec
	navigationDuration *prometheus.HistogramVec
	queryFetchesTotal  *prometheus.CounterVec
}

// New registers the tracescope collectors on reg and returns a Recorder.
func New(reg prometheus.Registerer) metrics.Recorder {
	r := &recorder{
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracescope_actions_dispatched_total",
			Help: "Total number of actions dispatched on the bus",
		}, []string{"action"}),

		handlerErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracescope_action_handler_errors_total",
			Help: "Total number of action subscriber errors",
		}, []string{"action"}),

		storeUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracescope_store_updates_total",
			Help: "Total number of published store state changes",
		}, []string{"namespace"}),

		navigationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracescope_navigations_total",
			Help: "Total number of navigations by outcome",
		}, []string{"outcome"}),

		navigationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracescope_navigation_duration_seconds",
			Help:    "Time from navigation start to terminal state in seconds",
			Buckets: defaultBuckets,
		}, []string{"outcome"}),

		queryFetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracescope_query_fetches_total",
			Help: "Total number of query fetches",
		}, []string{"query", "success"}),
	}

	reg.MustRegister(
		r.actionsTotal,
		r.handlerErrorsTotal,
		r.storeUpdatesTotal,
		r.navigationsTotal,
		r.navigationDuration,
		r.queryFetchesTotal,
	)

	return r
}

func (r *recorder) ActionDispatched(key string) {
	r.actionsTotal.WithLabelValues(key).Inc()
}

func (r *recorder) HandlerFailed(key string) {
	r.handlerErrorsTotal.WithLabelValues(key).Inc()
}

func (r *recorder) StoreUpdated(namespace string) {
	r.storeUpdatesTotal.WithLabelValues(namespace).Inc()
}

func (r *recorder) NavigationFinished(outcome string, elapsed time.Duration) {
	r.navigationsTotal.WithLabelValues(outcome).Inc()
	r.navigationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (r *recorder) QueryFetched(queryKey string, success bool) {
	r.queryFetchesTotal.WithLabelValues(queryKey, boolToStr(success)).Inc()
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
