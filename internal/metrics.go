package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var TotalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tablecraft_requests_total",
	Help: "The total number of api requests by method and status class",
}, []string{"method", "status"})

var TotalRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tablecraft_request_retries_total",
	Help: "The total number of api request retries",
})

var TotalRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tablecraft_token_refreshes_total",
	Help: "The total number of token refresh calls by outcome",
}, []string{"outcome"})

var RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "tablecraft_request_duration_seconds",
	Help:    "The duration of a single api request attempt",
	Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
})

// ClientStats is a snapshot of the client metrics.
type ClientStats struct {
	Requests        float64 `json:"requests"`
	Retries         float64 `json:"retries"`
	Refreshes       float64 `json:"refreshes"`
	RequestDuration float64 `json:"requestDuration"`
}

// collect calls the function for each metric associated with the Collector
func collect(col prometheus.Collector, do func(*dto.Metric)) {
	c := make(chan prometheus.Metric)
	go func(c chan prometheus.Metric) {
		col.Collect(c)
		close(c)
	}(c)
	for x := range c { // eg range across distinct label vector values
		m := dto.Metric{}
		_ = x.Write(&m)
		do(&m)
	}
}

// getMetricValue returns the sum of the Counter metrics associated with the Collector
// e.g. the metric for a non-vector, or the sum of the metrics for vector labels.
// If the metric is a Histogram then number of samples is used.
func getMetricValue(col prometheus.Collector) float64 {
	var total float64
	collect(col, func(m *dto.Metric) {
		if h := m.GetHistogram(); h != nil {
			total += float64(h.GetSampleCount())
		} else {
			total += m.GetCounter().GetValue()
		}
	})
	return total
}

// GetClientStats returns a snapshot of the client stats
func GetClientStats() *ClientStats {
	var s ClientStats
	s.Requests = getMetricValue(TotalRequests)
	s.Retries = getMetricValue(TotalRetries)
	s.Refreshes = getMetricValue(TotalRefreshes)
	s.RequestDuration = getMetricValue(RequestDuration)
	return &s
}
