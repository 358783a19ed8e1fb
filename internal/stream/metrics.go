package stream

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bytesStreamed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulsegen_stream_bytes_total",
		Help: "Total number of video bytes written to clients.",
	})

	responsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsegen_stream_responses_total",
		Help: "Total number of stream responses by status code.",
	}, []string{"status"})
)

func observe(status int, written int64) {
	responsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	if written > 0 {
		bytesStreamed.Add(float64(written))
	}
}
