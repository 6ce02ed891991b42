package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

var (
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appgen_generations_total",
		Help: "Generation gateway calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	Records = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appgen_records_total",
		Help: "Persistence attempts by outcome.",
	}, []string{"outcome"})

	Previews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "appgen_previews_total",
		Help: "Fragment extractions by extractor.",
	}, []string{"extractor"})

	Archives = promauto.NewCounter(prometheus.CounterOpts{
		Name: "appgen_archives_total",
		Help: "Archives packaged for download.",
	})
)
