package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
)

// Store is the content-addressed persistence layer for raw transcripts.
// Keys are derived from (source, strategy, format), so payloads from
// different strategies never overwrite each other.
//
// Reads are fail-open: a missing, zero-byte, or undecodable entry is a
// miss, never a hard error. Put is idempotent; writing a key twice with
// different content is last-write-wins.
type Store interface {
	Get(ctx context.Context, key string) (RawTranscript, bool, error)
	Put(ctx context.Context, key string, raw RawTranscript) error
	Invalidate(ctx context.Context, key string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
	InvalidateAll(ctx context.Context) error
}

// VideoPrefix is the key prefix shared by every cached entry for one
// video, transcripts and tool results alike, so a targeted invalidation
// can drop them all with one prefix sweep.
func VideoPrefix(videoID string) string {
	return "tx:" + videoID + ":"
}

// CacheKey builds a deterministic key under the video's prefix from the
// remaining parts.
func CacheKey(videoID string, parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%s%x", VideoPrefix(videoID), hash[:12]) // 24-char hex suffix
}

// TranscriptKey addresses a raw transcript by source, strategy, and format.
func TranscriptKey(ref SourceRef, strategy, format string) string {
	return CacheKey(ref.ID, "transcript", strategy, format)
}

// MemoryStore is a process-local Store. Used as the default when no
// durable backing is configured, and throughout the tests.
type MemoryStore struct {
	m sync.Map // key → RawTranscript
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context, key string) (RawTranscript, bool, error) {
	val, ok := s.m.Load(key)
	if !ok {
		return RawTranscript{}, false, nil
	}
	raw := val.(RawTranscript)
	if len(raw.Payload) == 0 {
		return RawTranscript{}, false, nil
	}
	return raw, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, raw RawTranscript) error {
	cp := raw
	cp.Payload = append([]byte(nil), raw.Payload...)
	s.m.Store(key, cp)
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, key string) error {
	s.m.Delete(key)
	return nil
}

func (s *MemoryStore) InvalidatePrefix(_ context.Context, prefix string) error {
	s.m.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			s.m.Delete(key)
		}
		return true
	})
	return nil
}

func (s *MemoryStore) InvalidateAll(_ context.Context) error {
	s.m.Range(func(key, _ any) bool {
		s.m.Delete(key)
		return true
	})
	return nil
}
