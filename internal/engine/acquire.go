package engine

import (
	"context"
	"log/slog"
	"time"
)

// Strategy is one way of obtaining a raw transcript. Name identifies the
// strategy in cache keys and errors, Format declares the caption format
// every successful Fetch returns.
type Strategy interface {
	Name() string
	Format() string
	Fetch(ctx context.Context, ref SourceRef) ([]byte, error)
}

// Chain tries strategies in order until one yields a payload that parses
// to at least one cue. Each strategy's result is consulted in and
// persisted to the Store; cache failures downgrade the chain to
// no-caching for the rest of the call instead of failing it.
type Chain struct {
	Store      Store
	Strategies []Strategy
	Timeout    time.Duration
}

// Acquire walks the strategy ladder. The returned attempts list every
// strategy that failed before the winning one, so callers can surface
// recovered failures; on exhaustion the error is a *NoTranscriptError
// wrapping the same list.
func (c *Chain) Acquire(ctx context.Context, ref SourceRef) (RawTranscript, []AttemptError, error) {
	incrAcquireRequests()

	var attempts []AttemptError
	caching := c.Store != nil

	for _, s := range c.Strategies {
		key := TranscriptKey(ref, s.Name(), s.Format())

		if caching {
			raw, ok, err := c.Store.Get(ctx, key)
			if err != nil {
				slog.Warn("transcript cache read failed, disabling cache for this call",
					"key", key, "error", err)
				caching = false
			} else if ok && CountCues(raw) > 0 {
				incrCacheHits()
				slog.Debug("transcript cache hit", "video", ref.ID, "strategy", s.Name())
				return raw, attempts, nil
			} else {
				incrCacheMisses()
			}
		}

		incrStrategyAttempts()
		payload, err := c.fetchOne(ctx, s, ref)
		if err != nil {
			incrStrategyFailures()
			attempts = append(attempts, AttemptError{Strategy: s.Name(), Err: err})
			slog.Warn("transcript strategy failed",
				"video", ref.ID, "strategy", s.Name(), "error", err)
			continue
		}

		raw := RawTranscript{Payload: payload, Format: s.Format(), Strategy: s.Name()}
		if CountCues(raw) == 0 {
			incrStrategyFailures()
			err := &MalformedTranscriptError{Strategy: s.Name(), Format: s.Format(), Reason: "payload yields no cues"}
			attempts = append(attempts, AttemptError{Strategy: s.Name(), Err: err})
			slog.Warn("transcript strategy returned unusable payload",
				"video", ref.ID, "strategy", s.Name())
			continue
		}

		if caching {
			if err := c.Store.Put(ctx, key, raw); err != nil {
				incrCacheWriteErrors()
				slog.Warn("transcript cache write failed, disabling cache for this call",
					"key", key, "error", err)
				caching = false
			}
		}

		slog.Info("transcript acquired",
			"video", ref.ID, "strategy", s.Name(), "bytes", len(payload), "recovered_failures", len(attempts))
		return raw, attempts, nil
	}

	return RawTranscript{}, attempts, &NoTranscriptError{Ref: ref, Attempts: attempts}
}

func (c *Chain) fetchOne(ctx context.Context, s Strategy, ref SourceRef) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return s.Fetch(ctx, ref)
}
