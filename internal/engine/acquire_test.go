package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

const validVTT = "WEBVTT\n\n00:00:00.000 --> 00:00:05.000\nhello world\n\n00:00:05.000 --> 00:00:10.000\nmore text\n"

type fakeStrategy struct {
	name    string
	payload []byte
	err     error
	calls   int
}

func (s *fakeStrategy) Name() string   { return s.name }
func (s *fakeStrategy) Format() string { return FormatVTT }
func (s *fakeStrategy) Fetch(_ context.Context, _ SourceRef) ([]byte, error) {
	s.calls++
	return s.payload, s.err
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (RawTranscript, bool, error) {
	return RawTranscript{}, false, &CacheIOError{Op: "get", Err: errors.New("disk gone")}
}
func (brokenStore) Put(context.Context, string, RawTranscript) error {
	return &CacheIOError{Op: "put", Err: errors.New("disk gone")}
}
func (brokenStore) Invalidate(context.Context, string) error       { return nil }
func (brokenStore) InvalidatePrefix(context.Context, string) error { return nil }
func (brokenStore) InvalidateAll(context.Context) error            { return nil }

func TestChainAcquire(t *testing.T) {
	ctx := context.Background()
	ref := SourceRef{ID: "abc123xyz00"}

	t.Run("first success short-circuits", func(t *testing.T) {
		s1 := &fakeStrategy{name: "one", payload: []byte(validVTT)}
		s2 := &fakeStrategy{name: "two", payload: []byte(validVTT)}
		chain := &Chain{Store: NewMemoryStore(), Strategies: []Strategy{s1, s2}}

		raw, attempts, err := chain.Acquire(ctx, ref)
		if err != nil {
			t.Fatalf("Acquire error: %v", err)
		}
		if raw.Strategy != "one" {
			t.Errorf("strategy = %q", raw.Strategy)
		}
		if len(attempts) != 0 {
			t.Errorf("attempts = %d, want 0", len(attempts))
		}
		if s2.calls != 0 {
			t.Errorf("second strategy called %d times, want 0", s2.calls)
		}
	})

	t.Run("records recovered failures", func(t *testing.T) {
		s1 := &fakeStrategy{name: "one", err: errors.New("blocked")}
		s2 := &fakeStrategy{name: "two", err: errors.New("timeout")}
		s3 := &fakeStrategy{name: "three", payload: []byte(validVTT)}
		chain := &Chain{Store: NewMemoryStore(), Strategies: []Strategy{s1, s2, s3}}

		raw, attempts, err := chain.Acquire(ctx, ref)
		if err != nil {
			t.Fatalf("Acquire error: %v", err)
		}
		if raw.Strategy != "three" {
			t.Errorf("strategy = %q", raw.Strategy)
		}
		if len(attempts) != 2 {
			t.Fatalf("attempts = %d, want 2", len(attempts))
		}
		if attempts[0].Strategy != "one" || attempts[1].Strategy != "two" {
			t.Errorf("attempt order: %+v", attempts)
		}
	})

	t.Run("exhaustion yields NoTranscriptError", func(t *testing.T) {
		s1 := &fakeStrategy{name: "one", err: errors.New("blocked")}
		s2 := &fakeStrategy{name: "two", err: errors.New("blocked")}
		chain := &Chain{Store: NewMemoryStore(), Strategies: []Strategy{s1, s2}}

		_, attempts, err := chain.Acquire(ctx, ref)
		var noTx *NoTranscriptError
		if !errors.As(err, &noTx) {
			t.Fatalf("err = %v, want *NoTranscriptError", err)
		}
		if len(noTx.Attempts) != 2 || len(attempts) != 2 {
			t.Errorf("attempts = %d/%d, want 2", len(noTx.Attempts), len(attempts))
		}
	})

	t.Run("unusable payload counts as failed attempt", func(t *testing.T) {
		s1 := &fakeStrategy{name: "garbage", payload: []byte("this is not a caption file")}
		s2 := &fakeStrategy{name: "good", payload: []byte(validVTT)}
		chain := &Chain{Store: NewMemoryStore(), Strategies: []Strategy{s1, s2}}

		raw, attempts, err := chain.Acquire(ctx, ref)
		if err != nil {
			t.Fatalf("Acquire error: %v", err)
		}
		if raw.Strategy != "good" {
			t.Errorf("strategy = %q", raw.Strategy)
		}
		if len(attempts) != 1 {
			t.Fatalf("attempts = %d, want 1", len(attempts))
		}
		var malformed *MalformedTranscriptError
		if !errors.As(attempts[0].Err, &malformed) {
			t.Errorf("attempt err = %v, want *MalformedTranscriptError", attempts[0].Err)
		}
	})

	t.Run("cache hit skips fetching", func(t *testing.T) {
		store := NewMemoryStore()
		s1 := &fakeStrategy{name: "one", payload: []byte(validVTT)}
		key := TranscriptKey(ref, s1.Name(), s1.Format())
		store.Put(ctx, key, RawTranscript{Payload: []byte(validVTT), Format: FormatVTT, Strategy: "one"})

		chain := &Chain{Store: store, Strategies: []Strategy{s1}}
		raw, _, err := chain.Acquire(ctx, ref)
		if err != nil {
			t.Fatalf("Acquire error: %v", err)
		}
		if string(raw.Payload) != validVTT {
			t.Error("payload mismatch on cache hit")
		}
		if s1.calls != 0 {
			t.Errorf("strategy called %d times on cache hit, want 0", s1.calls)
		}
	})

	t.Run("success populates cache", func(t *testing.T) {
		store := NewMemoryStore()
		s1 := &fakeStrategy{name: "one", payload: []byte(validVTT)}
		chain := &Chain{Store: store, Strategies: []Strategy{s1}}

		if _, _, err := chain.Acquire(ctx, ref); err != nil {
			t.Fatal(err)
		}
		got, ok, _ := store.Get(ctx, TranscriptKey(ref, "one", FormatVTT))
		if !ok || string(got.Payload) != validVTT {
			t.Error("expected payload persisted after fetch")
		}
	})

	t.Run("broken store degrades to no-caching", func(t *testing.T) {
		s1 := &fakeStrategy{name: "one", payload: []byte(validVTT)}
		chain := &Chain{Store: brokenStore{}, Strategies: []Strategy{s1}}

		raw, _, err := chain.Acquire(ctx, ref)
		if err != nil {
			t.Fatalf("Acquire should survive cache failures, got %v", err)
		}
		if raw.Strategy != "one" {
			t.Errorf("strategy = %q", raw.Strategy)
		}
	})

	t.Run("strategy timeout is applied", func(t *testing.T) {
		slow := &slowStrategy{delay: 200 * time.Millisecond}
		chain := &Chain{Store: NewMemoryStore(), Strategies: []Strategy{slow}, Timeout: 10 * time.Millisecond}

		_, attempts, err := chain.Acquire(ctx, ref)
		if err == nil {
			t.Fatal("expected exhaustion error")
		}
		if len(attempts) != 1 || !errors.Is(attempts[0].Err, context.DeadlineExceeded) {
			t.Errorf("attempts = %+v, want deadline exceeded", attempts)
		}
	})
}

type slowStrategy struct {
	delay time.Duration
}

func (s *slowStrategy) Name() string   { return "slow" }
func (s *slowStrategy) Format() string { return FormatVTT }
func (s *slowStrategy) Fetch(ctx context.Context, _ SourceRef) ([]byte, error) {
	select {
	case <-time.After(s.delay):
		return []byte(validVTT), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
