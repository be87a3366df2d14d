package highlightserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anatolykoptev/go_highlights/internal/engine"
	"github.com/anatolykoptev/go_highlights/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerVideoHighlights(server *mcp.Server, deps *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_highlights",
		Description: "Extract the most relevant timestamped segments from a YouTube video's captions. Returns structured JSON with per-segment start/end seconds, a text excerpt, an optional summary, a relevance score, and the matched terms. Keyword-driven; falls back to common-word density when no keyword matches.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input HighlightsInput) (*mcp.CallToolResult, HighlightsOutput, error) {
		if input.URL == "" {
			return nil, HighlightsOutput{}, fmt.Errorf("url is required")
		}
		ref, err := engine.ParseSourceRef(input.URL)
		if err != nil {
			return nil, HighlightsOutput{}, err
		}

		cfg := overlayConfig(deps.Base, input)
		cacheKey := toolutil.ResultKey("video_highlights", ref.ID, fingerprintHighlights(cfg))
		if out, ok := toolutil.CacheLoadJSON[HighlightsOutput](ctx, deps.Base.Store, cacheKey); ok {
			return nil, out, nil
		}

		pipe, err := engine.New(cfg)
		if err != nil {
			return nil, HighlightsOutput{}, err
		}

		res, err := pipe.Run(ctx, ref)
		if err != nil {
			// Fatal stages still report their trace so the caller can
			// tell a missing transcript from a malformed one.
			out := HighlightsOutput{VideoID: ref.ID, Stages: res.Stages}
			return nil, out, err
		}

		out := HighlightsOutput{
			VideoID:    ref.ID,
			Highlights: make([]Highlight, 0, len(res.Highlights)),
			Stages:     res.Stages,
		}
		if res.Transcript != nil {
			out.DurationSeconds = res.Transcript.Duration.Seconds()
		}
		for _, h := range res.Highlights {
			out.Highlights = append(out.Highlights, Highlight{
				StartSeconds: h.Start.Seconds(),
				EndSeconds:   h.End.Seconds(),
				Excerpt:      h.Excerpt,
				Summary:      h.Summary,
				Score:        h.Score,
				Rank:         h.Rank,
				Terms:        h.Terms,
			})
		}

		if len(out.Highlights) > 0 {
			toolutil.CacheStoreJSON(ctx, deps.Base.Store, cacheKey, "video_highlights", out)
		}
		return nil, out, nil
	})
}

// overlayConfig applies the request's selection overrides to the server
// base config. Acquisition wiring (store, strategies, timeouts) is never
// overridable per request.
func overlayConfig(base engine.Config, input HighlightsInput) engine.Config {
	cfg := base
	if len(input.Keywords) > 0 {
		cfg.Keywords = input.Keywords
	}
	if input.Count > 0 {
		cfg.TargetCount = input.Count
	}
	if input.WindowSeconds > 0 {
		cfg.WindowWidth = time.Duration(input.WindowSeconds) * time.Second
		if cfg.WindowStride > cfg.WindowWidth {
			cfg.WindowStride = cfg.WindowWidth
		}
	}
	if input.MinGapSeconds > 0 {
		cfg.MinGap = time.Duration(input.MinGapSeconds) * time.Second
	}
	if input.MinScore > 0 {
		cfg.MinScore = input.MinScore
	}
	return cfg
}

func fingerprintHighlights(cfg engine.Config) string {
	return fmt.Sprintf("%s|%d|%s|%s|%s|%g",
		strings.Join(cfg.Keywords, ","),
		cfg.TargetCount, cfg.WindowWidth, cfg.WindowStride, cfg.MinGap, cfg.MinScore)
}
