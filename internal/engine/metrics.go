package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	AcquireRequests  atomic.Int64
	StrategyAttempts atomic.Int64
	StrategyFailures atomic.Int64
	CacheHits        atomic.Int64
	CacheMisses      atomic.Int64
	CacheWriteErrors atomic.Int64
	ParseRequests    atomic.Int64
	ParseFailures    atomic.Int64
	WindowsScored    atomic.Int64
	FallbackScoring  atomic.Int64
	RunsSucceeded    atomic.Int64
	RunsDegraded     atomic.Int64
	RunsFailed       atomic.Int64
	SummarizerErrors atomic.Int64
}

func incrAcquireRequests()  { metrics.AcquireRequests.Add(1) }
func incrStrategyAttempts() { metrics.StrategyAttempts.Add(1) }
func incrStrategyFailures() { metrics.StrategyFailures.Add(1) }
func incrCacheHits()        { metrics.CacheHits.Add(1) }
func incrCacheMisses()      { metrics.CacheMisses.Add(1) }
func incrCacheWriteErrors() { metrics.CacheWriteErrors.Add(1) }
func incrParseRequests()    { metrics.ParseRequests.Add(1) }
func incrParseFailures()    { metrics.ParseFailures.Add(1) }
func incrFallbackScoring()  { metrics.FallbackScoring.Add(1) }
func incrSummarizerErrors() { metrics.SummarizerErrors.Add(1) }

func addWindowsScored(n int) { metrics.WindowsScored.Add(int64(n)) }

func countRun(status string) {
	switch status {
	case StatusSuccess:
		metrics.RunsSucceeded.Add(1)
	case StatusDegraded:
		metrics.RunsDegraded.Add(1)
	case StatusFailed:
		metrics.RunsFailed.Add(1)
	}
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"acquire_requests":   metrics.AcquireRequests.Load(),
		"strategy_attempts":  metrics.StrategyAttempts.Load(),
		"strategy_failures":  metrics.StrategyFailures.Load(),
		"cache_hits":         metrics.CacheHits.Load(),
		"cache_misses":       metrics.CacheMisses.Load(),
		"cache_write_errors": metrics.CacheWriteErrors.Load(),
		"parse_requests":     metrics.ParseRequests.Load(),
		"parse_failures":     metrics.ParseFailures.Load(),
		"windows_scored":     metrics.WindowsScored.Load(),
		"fallback_scoring":   metrics.FallbackScoring.Load(),
		"runs_succeeded":     metrics.RunsSucceeded.Load(),
		"runs_degraded":      metrics.RunsDegraded.Load(),
		"runs_failed":        metrics.RunsFailed.Load(),
		"summarizer_errors":  metrics.SummarizerErrors.Load(),
	}
}

// FormatMetrics returns counters as a simple text format for the server's
// metrics endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"acquire_requests", "strategy_attempts", "strategy_failures",
		"cache_hits", "cache_misses", "cache_write_errors",
		"parse_requests", "parse_failures",
		"windows_scored", "fallback_scoring",
		"runs_succeeded", "runs_degraded", "runs_failed",
		"summarizer_errors",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
