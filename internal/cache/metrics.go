package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_cache_hits_total",
		Help: "Cache lookups answered from the store.",
	}, []string{"backend"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_cache_misses_total",
		Help: "Cache lookups that found no entry.",
	}, []string{"backend"})
	cacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_cache_errors_total",
		Help: "Cache operations that failed at the backend.",
	}, []string{"backend", "op"})
	invalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_cache_invalidations_total",
		Help: "Invalidations triggered by mutations, by entity kind and event.",
	}, []string{"kind", "event"})
)
