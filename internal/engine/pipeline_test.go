package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureVTT = "WEBVTT\n\n" +
	"00:00:00.000 --> 00:00:05.000\nintro begins\n\n" +
	"00:00:05.000 --> 00:00:10.000\njust filler\n\n" +
	"00:00:10.000 --> 00:00:15.000\nimportant demo here\n\n" +
	"00:00:15.000 --> 00:00:20.000\nmore filler\n\n" +
	"00:01:35.000 --> 00:01:40.000\nfinal conclusion\n"

func pipelineConfig(strategies ...Strategy) Config {
	cfg := DefaultConfig()
	cfg.TargetCount = 3
	cfg.WindowWidth = 10 * time.Second
	cfg.WindowStride = 5 * time.Second
	cfg.MinGap = 0
	cfg.Workers = 1
	cfg.Keywords = []string{"intro", "important", "conclusion"}
	cfg.Strategies = strategies
	cfg.Store = NewMemoryStore()
	return cfg
}

func TestNew(t *testing.T) {
	t.Run("invalid config rejected", func(t *testing.T) {
		cfg := pipelineConfig()
		cfg.WindowStride = 0
		_, err := New(cfg)
		assert.Error(t, err)
	})

	t.Run("bad keywords rejected", func(t *testing.T) {
		cfg := pipelineConfig()
		cfg.Keywords = []string{"term=notanumber"}
		_, err := New(cfg)
		assert.Error(t, err)
	})

	t.Run("nil store defaults to memory", func(t *testing.T) {
		cfg := pipelineConfig()
		cfg.Store = nil
		p, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, p.Store())
	})
}

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()
	ref := SourceRef{ID: "abc123xyz00"}

	t.Run("end to end success", func(t *testing.T) {
		p, err := New(pipelineConfig(&fakeStrategy{name: "one", payload: []byte(fixtureVTT)}))
		require.NoError(t, err)

		res, err := p.Run(ctx, ref)
		require.NoError(t, err)
		require.Len(t, res.Highlights, 3)

		assert.Equal(t, StatusSuccess, res.StageStatus(StageAcquire))
		assert.Equal(t, StatusSuccess, res.StageStatus(StageParse))
		assert.Equal(t, StatusSuccess, res.StageStatus(StageSelect))
		assert.Equal(t, StatusSkipped, res.StageStatus(StageSummarize))

		for i := 1; i < len(res.Highlights); i++ {
			assert.True(t, res.Highlights[i].Start >= res.Highlights[i-1].Start)
		}
		assert.NotNil(t, res.Transcript)
		assert.Equal(t, 100*time.Second, res.Transcript.Duration)
	})

	t.Run("acquire failure is fatal", func(t *testing.T) {
		p, err := New(pipelineConfig(&fakeStrategy{name: "one", err: errors.New("blocked")}))
		require.NoError(t, err)

		res, err := p.Run(ctx, ref)
		var noTx *NoTranscriptError
		require.ErrorAs(t, err, &noTx)
		require.NotNil(t, res)
		assert.Equal(t, StatusFailed, res.StageStatus(StageAcquire))
		assert.Empty(t, res.StageStatus(StageParse), "parse should never run")
	})

	t.Run("recovered acquire failures degrade the stage", func(t *testing.T) {
		p, err := New(pipelineConfig(
			&fakeStrategy{name: "one", err: errors.New("blocked")},
			&fakeStrategy{name: "two", payload: []byte(fixtureVTT)},
		))
		require.NoError(t, err)

		res, err := p.Run(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, StatusDegraded, res.StageStatus(StageAcquire))
		assert.NotEmpty(t, res.Highlights)
	})

	t.Run("no matching segments degrades select", func(t *testing.T) {
		cfg := pipelineConfig(&fakeStrategy{name: "one", payload: []byte(fixtureVTT)})
		cfg.Keywords = []string{"zebra"}
		cfg.FallbackKeywords = nil
		p, err := New(cfg)
		require.NoError(t, err)

		res, err := p.Run(ctx, ref)
		require.NoError(t, err, "empty selection is not fatal")
		assert.Empty(t, res.Highlights)
		assert.Equal(t, StatusDegraded, res.StageStatus(StageSelect))
	})

	t.Run("fallback keywords keep the run successful", func(t *testing.T) {
		cfg := pipelineConfig(&fakeStrategy{name: "one", payload: []byte(fixtureVTT)})
		cfg.Keywords = []string{"zebra"}
		cfg.FallbackKeywords = []string{"filler"}
		p, err := New(cfg)
		require.NoError(t, err)

		res, err := p.Run(ctx, ref)
		require.NoError(t, err)
		assert.NotEmpty(t, res.Highlights)
		assert.Equal(t, StatusSuccess, res.StageStatus(StageSelect))
	})

	t.Run("summarizer annotates segments", func(t *testing.T) {
		cfg := pipelineConfig(&fakeStrategy{name: "one", payload: []byte(fixtureVTT)})
		cfg.Summarizer = func(_ context.Context, text string) (string, error) {
			return "summary of: " + text, nil
		}
		p, err := New(cfg)
		require.NoError(t, err)

		res, err := p.Run(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, res.StageStatus(StageSummarize))
		for _, h := range res.Highlights {
			assert.Contains(t, h.Summary, "summary of:")
		}
	})

	t.Run("summarizer failure degrades but keeps excerpts", func(t *testing.T) {
		cfg := pipelineConfig(&fakeStrategy{name: "one", payload: []byte(fixtureVTT)})
		cfg.Summarizer = func(context.Context, string) (string, error) {
			return "", errors.New("model unavailable")
		}
		p, err := New(cfg)
		require.NoError(t, err)

		res, err := p.Run(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, StatusDegraded, res.StageStatus(StageSummarize))
		for _, h := range res.Highlights {
			assert.Empty(t, h.Summary)
			assert.NotEmpty(t, h.Excerpt)
		}
	})

	t.Run("second run hits the cache", func(t *testing.T) {
		s := &fakeStrategy{name: "one", payload: []byte(fixtureVTT)}
		p, err := New(pipelineConfig(s))
		require.NoError(t, err)

		_, err = p.Run(ctx, ref)
		require.NoError(t, err)
		_, err = p.Run(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, 1, s.calls, "second run should be served from cache")
	})
}

func TestPipelineRunTranscript(t *testing.T) {
	ctx := context.Background()
	ref := SourceRef{ID: "abc123xyz00"}

	t.Run("skips acquisition", func(t *testing.T) {
		p, err := New(pipelineConfig())
		require.NoError(t, err)

		raw := RawTranscript{Payload: []byte(fixtureVTT), Format: FormatVTT, Strategy: "caller"}
		res, err := p.RunTranscript(ctx, ref, raw)
		require.NoError(t, err)
		assert.Equal(t, StatusSkipped, res.StageStatus(StageAcquire))
		assert.Len(t, res.Highlights, 3)
	})

	t.Run("malformed payload is fatal at parse", func(t *testing.T) {
		p, err := New(pipelineConfig())
		require.NoError(t, err)

		raw := RawTranscript{Payload: []byte("WEBVTT\n\nbroken --> stamps\nx\n"), Format: FormatVTT, Strategy: "caller"}
		res, err := p.RunTranscript(ctx, ref, raw)
		var malformed *MalformedTranscriptError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, StatusFailed, res.StageStatus(StageParse))
	})
}
