package metrics

import "github.com/prometheus/client_golang/prometheus"

// Model invocation, web search and knowledge base metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskrag",
			Name:      "llm_requests_total",
			Help:      "Total number of language model invocations",
		},
		[]string{"provider", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskrag",
			Name:      "llm_request_duration_seconds",
			Help:      "Language model invocation duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskrag",
			Name:      "llm_tokens_total",
			Help:      "Total language model tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	WebSearchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskrag",
			Name:      "websearch_attempts_total",
			Help:      "Web search attempts by outcome",
		},
		[]string{"provider", "status"}, // "success" / "retry" / "exhausted"
	)

	WebSearchResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskrag",
			Name:      "websearch_results",
			Help:      "Number of results returned per web search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		},
		[]string{"provider"},
	)

	RetrievedContextsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskrag",
			Name:      "retrieved_contexts_total",
			Help:      "Retrieved contexts kept after merging, by source",
		},
		[]string{"source"},
	)

	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskrag",
			Name:      "analyses_total",
			Help:      "Completed analyses by mode and risk level",
		},
		[]string{"mode", "risk_level"},
	)

	KnowledgeChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "riskrag",
			Name:      "knowledge_chunks",
			Help:      "Number of chunks in the knowledge base index",
		},
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riskrag",
			Name:      "ingest_chunks_total",
			Help:      "Total chunks ingested into the knowledge base",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers model, search and knowledge base metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(WebSearchAttemptsTotal)
	prometheus.MustRegister(WebSearchResults)
	prometheus.MustRegister(RetrievedContextsTotal)
	prometheus.MustRegister(AnalysesTotal)
	prometheus.MustRegister(KnowledgeChunks)
	prometheus.MustRegister(IngestChunksTotal)
	pipelineMetricsRegistered = true
}
