package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricTUsTotal          = "scipcxx.indexing.tus.total"
	metricDocumentsTotal    = "scipcxx.indexing.documents.total"
	metricTUDuration        = "scipcxx.indexing.tu.duration.seconds"
	metricIllBehavedHeaders = "scipcxx.indexing.headers.ill_behaved.total"
	metricCacheHitsTotal    = "scipcxx.indexing.cache.hits.total"
	metricCacheMissesTotal  = "scipcxx.indexing.cache.misses.total"

	attrCache = "cache"
)

// IndexingMetrics holds OTel instruments for the indexing pipeline itself
// (as opposed to RED metrics on the driver's job-dispatch loop).
type IndexingMetrics struct {
	tusTotal          metric.Int64Counter
	documentsTotal    metric.Int64Counter
	tuDuration        metric.Float64Histogram
	illBehavedHeaders metric.Int64Counter
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
}

// RunStats holds the statistics for one completed driver run, decoupled
// from the scheduler's internal job-tracking types so it can be reported
// even when metrics are disabled (spec.md §12's statistics table).
type RunStats struct {
	TUs               int64
	Documents         int
	TUDurations       []time.Duration
	IllBehavedHeaders int64
	SymbolCacheHits   int64
	SymbolCacheMisses int64
	MacroCacheHits    int64
	MacroCacheMisses  int64
}

// NewIndexingMetrics creates indexing metric instruments from the given meter.
func NewIndexingMetrics(mt metric.Meter) (*IndexingMetrics, error) {
	b := newMetricBuilder(mt)

	im := &IndexingMetrics{
		tusTotal:          b.counter(metricTUsTotal, "Total translation units processed", "{tu}"),
		documentsTotal:    b.counter(metricDocumentsTotal, "Total documents emitted", "{document}"),
		tuDuration:        b.histogram(metricTUDuration, "Per-TU processing duration in seconds", "s", durationBucketBoundaries...),
		illBehavedHeaders: b.counter(metricIllBehavedHeaders, "Headers observed with more than one distinct content hash", "{header}"),
		cacheHits:         b.counter(metricCacheHitsTotal, "Symbol formatter cache hits by cache", "{hit}"),
		cacheMisses:       b.counter(metricCacheMissesTotal, "Symbol formatter cache misses by cache", "{miss}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return im, nil
}

// RecordRun records indexing statistics for a completed driver run. Safe to
// call on a nil receiver (no-op), so callers don't need to guard every call
// site on whether metrics are enabled.
func (im *IndexingMetrics) RecordRun(ctx context.Context, stats RunStats) {
	if im == nil {
		return
	}

	im.tusTotal.Add(ctx, stats.TUs)
	im.documentsTotal.Add(ctx, int64(stats.Documents))
	im.illBehavedHeaders.Add(ctx, stats.IllBehavedHeaders)

	for _, d := range stats.TUDurations {
		im.tuDuration.Record(ctx, d.Seconds())
	}

	symbolAttrs := metric.WithAttributes(attribute.String(attrCache, "symbol"))
	im.cacheHits.Add(ctx, stats.SymbolCacheHits, symbolAttrs)
	im.cacheMisses.Add(ctx, stats.SymbolCacheMisses, symbolAttrs)

	macroAttrs := metric.WithAttributes(attribute.String(attrCache, "macro"))
	im.cacheHits.Add(ctx, stats.MacroCacheHits, macroAttrs)
	im.cacheMisses.Add(ctx, stats.MacroCacheMisses, macroAttrs)
}
