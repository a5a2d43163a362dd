package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics carries the counters the tracking pipeline reports into.
type Metrics struct {
	ClicksRecorded    *prometheus.CounterVec
	ConversionsTotal  *prometheus.CounterVec
	PolicyResolutions *prometheus.CounterVec
	ShadowMismatches  prometheus.Counter
	ShadowFailures    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ClicksRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "affiliate",
			Name:      "clicks_recorded_total",
			Help:      "Referral clicks recorded, by classification status.",
		}, []string{"status"}),
		ConversionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "affiliate",
			Name:      "conversions_total",
			Help:      "Conversions created, by attribution model.",
		}, []string{"model"}),
		PolicyResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "affiliate",
			Name:      "policy_resolutions_total",
			Help:      "Policy resolutions, by resolution level (safe_mode included).",
		}, []string{"level"}),
		ShadowMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "affiliate",
			Name:      "shadow_mismatches_total",
			Help:      "Shadow-mode comparisons where legacy and policy amounts diverged.",
		}),
		ShadowFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "affiliate",
			Name:      "shadow_failures_total",
			Help:      "Shadow-mode comparisons that failed and were swallowed.",
		}),
	}
}

// NewForTest returns metrics bound to a private registry so parallel tests
// do not collide on the default one.
func NewForTest() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		ClicksRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clicks_recorded_total",
		}, []string{"status"}),
		ConversionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conversions_total",
		}, []string{"model"}),
		PolicyResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_resolutions_total",
		}, []string{"level"}),
		ShadowMismatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "shadow_mismatches_total",
		}),
		ShadowFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "shadow_failures_total",
		}),
	}
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
