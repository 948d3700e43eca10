package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axoncore_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "axoncore_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axoncore_ledger_transitions_total",
			Help: "Total number of applied account transitions.",
		},
		[]string{"transition"},
	)

	TokensDebitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axoncore_tokens_debited_total",
			Help: "Total number of tokens debited from accounts.",
		},
		[]string{"tier"},
	)

	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "axoncore_quota_rejections_total",
			Help: "Total number of requests refused by the admission check.",
		},
	)

	AccountCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axoncore_account_cache_total",
			Help: "Account cache lookups by result.",
		},
		[]string{"result"},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axoncore_llm_requests_total",
			Help: "Total number of upstream completion calls.",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "axoncore_llm_request_duration_seconds",
			Help:    "Upstream completion latency in seconds.",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 45},
		},
		[]string{"model"},
	)

	SubscriptionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axoncore_subscription_events_total",
			Help: "Subscription lifecycle outcomes by action.",
		},
		[]string{"action", "outcome"},
	)

	UsageEventsPersistedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "axoncore_usage_events_persisted_total",
			Help: "Total number of usage events stored by the consumer.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		LedgerTransitionsTotal,
		TokensDebitedTotal,
		QuotaRejectionsTotal,
		AccountCacheTotal,
		LLMRequestsTotal,
		LLMRequestDuration,
		SubscriptionEventsTotal,
		UsageEventsPersistedTotal,
	)
}
