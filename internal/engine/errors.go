package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSegmentsFound reports that selection exhausted both the configured
// and fallback keyword sets without a single qualifying candidate. It is a
// degraded outcome, not a failure; the pipeline never aborts on it.
var ErrNoSegmentsFound = errors.New("no qualifying segments found")

// AttemptError records one acquisition strategy's failure. The chain keeps
// every attempt so that total exhaustion can report the full history.
type AttemptError struct {
	Strategy string
	Err      error
}

func (e AttemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e AttemptError) Unwrap() error { return e.Err }

// NoTranscriptError is returned when every acquisition strategy in the
// chain has been tried and none produced a usable payload.
type NoTranscriptError struct {
	Ref      SourceRef
	Attempts []AttemptError
}

func (e *NoTranscriptError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return fmt.Sprintf("no transcript available for %s: [%s]", e.Ref.ID, strings.Join(parts, "; "))
}

// MalformedTranscriptError reports a payload that was acquired but could
// not be parsed into at least one valid cue. Strategy and Format identify
// the originating acquisition path for diagnostics.
type MalformedTranscriptError struct {
	Strategy string
	Format   string
	Reason   string
}

func (e *MalformedTranscriptError) Error() string {
	src := e.Format
	if e.Strategy != "" {
		src = e.Strategy + "/" + e.Format
	}
	return fmt.Sprintf("malformed transcript (%s): %s", src, e.Reason)
}

// CacheIOError wraps a cache store failure. Callers downgrade to
// acquire-without-caching instead of aborting.
type CacheIOError struct {
	Op  string // "get", "put", "invalidate"
	Key string
	Err error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *CacheIOError) Unwrap() error { return e.Err }
