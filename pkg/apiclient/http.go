// Package apiclient talks to the solver relay and to NEAR RPC.
package apiclient

import (
	"net/http"
	"time"

	"github.com/speedrun-hq/speedrun-swapper/pkg/metrics"
)

// Helper function to create an HTTP client with timeouts
func createHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func observe(upstream string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.UpstreamRequests.WithLabelValues(upstream, result).Inc()
	metrics.UpstreamRequestTime.WithLabelValues(upstream).Observe(time.Since(start).Seconds())
}
