package promote

import (
	"time"

	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	promotionDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: "promoter",
		Subsystem: "engine",
		Name:      "promotion_duration_seconds",
		Help:      "Duration of a single environment promotion attempt.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{"environment", "outcome"})
)

func instrumentPromotion(environment string, outcome Outcome, d time.Duration) {
	promotionDuration.
		With("environment", environment, "outcome", string(outcome)).
		Observe(d.Seconds())
}
