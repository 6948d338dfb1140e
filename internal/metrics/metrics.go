// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics holds the compiler's Prometheus registrations: build/hit
// counters and duration histograms. NodeCache records the counters; the
// tensor-graph and compact histograms are registered and have Observe
// methods, but no package in this module calls them. Grounded on
// services/trace/cache/metrics.go and
// services/orchestrator/observability/metrics.go's promauto struct
// pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "n3"

// Compiler bundles every metric the core emits. Construct one with New and
// thread it through the NodeCache option (nodecache.WithMetrics, or
// n3root.WithMetrics); a nil *Compiler
// is valid everywhere (every method below nil-checks its receiver) so
// metrics stay optional for library callers that don't run a registry.
type Compiler struct {
	// NodeCacheBuildsTotal counts NodeCache.Get calls, labeled by outcome
	// (hit, built, error).
	NodeCacheBuildsTotal *prometheus.CounterVec

	// NodeCacheHitsTotal counts NodeCache.Get calls served from builds.
	NodeCacheHitsTotal prometheus.Counter

	// TensorGraphBuildDuration measures TensorGraphBuilder.Build latency.
	TensorGraphBuildDuration prometheus.Histogram

	// CompactDuration measures Compact/Decompact round-trip latency,
	// labeled by direction (compact, decompact).
	CompactDuration *prometheus.HistogramVec
}

// New registers and returns a Compiler against reg. Passing nil creates
// the collectors without registering them anywhere.
func New(reg prometheus.Registerer) *Compiler {
	factory := promauto.With(reg)
	return &Compiler{
		NodeCacheBuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nodecache",
			Name:      "builds_total",
			Help:      "Total NodeCache.Get calls by outcome.",
		}, []string{"outcome"}),
		NodeCacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nodecache",
			Name:      "hits_total",
			Help:      "Total NodeCache.Get calls served from an already-built IR.",
		}),
		TensorGraphBuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tensorgraph",
			Name:      "build_duration_seconds",
			Help:      "Duration of TensorGraphBuilder.Build calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		CompactDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compact",
			Name:      "duration_seconds",
			Help:      "Duration of Compact/Decompact calls by direction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
	}
}

func (c *Compiler) recordNodeCacheOutcome(outcome string) {
	if c == nil {
		return
	}
	c.NodeCacheBuildsTotal.WithLabelValues(outcome).Inc()
}

// ObserveNodeCacheHit records a NodeCache.Get that returned an
// already-built IR's safe clone without parsing anything.
func (c *Compiler) ObserveNodeCacheHit() {
	if c == nil {
		return
	}
	c.NodeCacheHitsTotal.Inc()
	c.recordNodeCacheOutcome("hit")
}

// ObserveNodeCacheBuild records a NodeCache.Get that parsed and built a
// fresh IR, labeled by whether the build succeeded.
func (c *Compiler) ObserveNodeCacheBuild(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.recordNodeCacheOutcome("error")
		return
	}
	c.recordNodeCacheOutcome("built")
}

// ObserveTensorGraphBuild records how long a TensorGraphBuilder.Build call
// took, in seconds.
func (c *Compiler) ObserveTensorGraphBuild(seconds float64) {
	if c == nil {
		return
	}
	c.TensorGraphBuildDuration.Observe(seconds)
}

// ObserveCompact records how long a Compact or Decompact call took.
func (c *Compiler) ObserveCompact(direction string, seconds float64) {
	if c == nil {
		return
	}
	c.CompactDuration.WithLabelValues(direction).Observe(seconds)
}
