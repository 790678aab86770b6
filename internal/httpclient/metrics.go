package httpclient

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	duration     *prometheus.HistogramVec //nolint:gochecknoglobals
	durationOnce sync.Once                //nolint:gochecknoglobals
)

func observe(service, method, code string, d time.Duration) {
	durationOnce.Do(func() {
		duration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Duration of the calls to the authorization server and the policy engine.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "method", "code"},
		)
	})

	duration.WithLabelValues(service, method, code).Observe(d.Seconds())
}
