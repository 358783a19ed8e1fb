package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsegen_analysis_jobs_total",
		Help: "Total number of analysis jobs by result.",
	}, []string{"result"})

	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsegen_analysis_jobs_in_flight",
		Help: "Number of analysis jobs currently running.",
	})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsegen_analysis_job_duration_seconds",
		Help:    "Analysis job duration in seconds.",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulsegen_analysis_queue_depth",
		Help: "Number of analysis jobs waiting in the in-memory queue.",
	})
)
