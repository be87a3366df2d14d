// Package toolutil provides shared helpers for the MCP tool layer,
// mainly JSON result caching on top of the engine's transcript store.
package toolutil

import (
	"context"
	"encoding/json"

	"github.com/anatolykoptev/go_highlights/internal/engine"
)

// Tool results live in the same store as transcripts but under their own
// key prefix and a synthetic format tag.
const toolFormat = "json"

// ResultKey addresses a cached tool result for one video under one
// parameter fingerprint. Keys live under the video's prefix so a
// targeted invalidation drops tool results along with the transcripts.
func ResultKey(tool, videoID, fingerprint string) string {
	return engine.CacheKey(videoID, "tool", tool, fingerprint)
}

// CacheLoadJSON loads a cached value of type T. Misses, store errors, and
// decode failures all report false; the caller recomputes.
func CacheLoadJSON[T any](ctx context.Context, store engine.Store, key string) (T, bool) {
	var zero T
	if store == nil {
		return zero, false
	}
	raw, ok, err := store.Get(ctx, key)
	if err != nil || !ok || raw.Format != toolFormat {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(raw.Payload, &out); err != nil {
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it under key. Failures are
// swallowed; caching tool results is best effort.
func CacheStoreJSON[T any](ctx context.Context, store engine.Store, key, tool string, v T) {
	if store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = store.Put(ctx, key, engine.RawTranscript{
		Payload:  data,
		Format:   toolFormat,
		Strategy: tool,
	})
}
