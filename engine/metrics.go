package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCompiles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tlex",
		Subsystem: "engine",
		Name:      "compiles_total",
		Help:      "Total number of rule sets compiled into lexers",
	})
	metricLexerCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tlex",
		Subsystem: "engine",
		Name:      "lexer_cache_hits_total",
		Help:      "Total number of compiled lexers served from the cache",
	})
	metricResultCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tlex",
		Subsystem: "engine",
		Name:      "result_cache_hits_total",
		Help:      "Total number of scan results served from the on-disk cache",
	})
	metricTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tlex",
		Subsystem: "engine",
		Name:      "tokens_total",
		Help:      "Total number of tokens emitted",
	}, []string{"action"})
	metricLexicalErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tlex",
		Subsystem: "engine",
		Name:      "lexical_errors_total",
		Help:      "Total number of inputs rejected with a lexical error",
	})
	metricScannedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tlex",
		Subsystem: "engine",
		Name:      "scanned_bytes_total",
		Help:      "Total amount of input scanned",
	})
)
