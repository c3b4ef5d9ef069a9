package graph

import "github.com/prometheus/client_golang/prometheus"

var (
	nodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ayurwell_workflow_node_duration_seconds",
			Help: "Duration of workflow node executions",
		},
		[]string{"node"},
	)
	passagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ayurwell_passages_fetched_total",
			Help: "Total number of evidence passages returned by each source",
		},
		[]string{"origin"},
	)
	sourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ayurwell_source_errors_total",
			Help: "Total number of failed evidence source calls",
		},
		[]string{"origin"},
	)
	gradingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ayurwell_gradings_total",
			Help: "Total number of passage gradings by outcome",
		},
		[]string{"outcome"},
	)
	synthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ayurwell_synthesis_total",
			Help: "Total number of answers by synthesis outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(nodeDuration)
	prometheus.MustRegister(passagesFetched)
	prometheus.MustRegister(sourceErrorsTotal)
	prometheus.MustRegister(gradingsTotal)
	prometheus.MustRegister(synthesisTotal)
}
