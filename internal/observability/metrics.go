// Package observability provides metrics and tracing.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quill_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PageCacheResults counts rendered-page cache lookups by outcome (hit, miss, error).
	PageCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_page_cache_results_total",
		Help: "Rendered page cache lookups by outcome",
	}, []string{"page", "result"})

	// ContentCreated counts created posts, comments and follow edges.
	ContentCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_content_created_total",
		Help: "Total number of created content records by kind",
	}, []string{"kind"})

	// AuthEvents counts signups, logins, failed logins and logouts.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_auth_events_total",
		Help: "Authentication events by type",
	}, []string{"event"})
)

const queryStartKey = "quill:query_start"

// RegisterGormMetrics installs GORM callbacks that observe query latency per operation and table.
func RegisterGormMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	name := "quill:metrics:"
	return errors.Join(
		cb.Create().Before("gorm:create").Register(name+"create:before", before),
		cb.Create().After("gorm:create").Register(name+"create:after", after("create")),
		cb.Query().Before("gorm:query").Register(name+"query:before", before),
		cb.Query().After("gorm:query").Register(name+"query:after", after("query")),
		cb.Update().Before("gorm:update").Register(name+"update:before", before),
		cb.Update().After("gorm:update").Register(name+"update:after", after("update")),
		cb.Delete().Before("gorm:delete").Register(name+"delete:before", before),
		cb.Delete().After("gorm:delete").Register(name+"delete:after", after("delete")),
		cb.Raw().Before("gorm:raw").Register(name+"raw:before", before),
		cb.Raw().After("gorm:raw").Register(name+"raw:after", after("raw")),
	)
}
