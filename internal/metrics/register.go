// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nearby"

var registerOnce sync.Once

// Register registers the pipeline, LLM and embedding collectors with the
// default registry. Must be called from main; safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			LLMRequestsTotal,
			LLMRequestDuration,
			LLMTokensTotal,
			IntentsTotal,
			LoopOutcomesTotal,
			DomainSearchTotal,
			NormalizerPathTotal,
			CacheWritesTotal,
			LocationRequestsTotal,
			ActiveSessions,
		)
	})
}
