package highlightserver

import (
	"context"
	"fmt"

	"github.com/anatolykoptev/go_highlights/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerVideoTranscript(server *mcp.Server, deps *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_transcript",
		Description: "Fetch a YouTube video's full caption transcript as plain text or WebVTT. Tries official captions, auto-generated captions, the watch page, and yt-dlp in order; reports which strategies failed before one succeeded.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, TranscriptOutput, error) {
		if input.URL == "" {
			return nil, TranscriptOutput{}, fmt.Errorf("url is required")
		}
		ref, err := engine.ParseSourceRef(input.URL)
		if err != nil {
			return nil, TranscriptOutput{}, err
		}

		chain := &engine.Chain{
			Store:      deps.Base.Store,
			Strategies: deps.Base.Strategies,
			Timeout:    deps.Base.StrategyTimeout,
		}
		raw, attempts, err := chain.Acquire(ctx, ref)
		if err != nil {
			return nil, TranscriptOutput{}, err
		}

		t, err := engine.Parse(raw)
		if err != nil {
			return nil, TranscriptOutput{}, err
		}

		out := TranscriptOutput{
			VideoID:         ref.ID,
			CueCount:        len(t.Cues),
			DurationSeconds: t.Duration.Seconds(),
			Strategy:        raw.Strategy,
		}
		for _, a := range attempts {
			out.RecoveredFailures = append(out.RecoveredFailures, a.Error())
		}

		switch input.Format {
		case "", "text":
			out.Format = "text"
			out.Transcript = t.Text()
		case "vtt":
			out.Format = "vtt"
			out.Transcript = string(engine.WriteVTT(t))
		default:
			return nil, TranscriptOutput{}, fmt.Errorf("unknown format %q, want text or vtt", input.Format)
		}
		return nil, out, nil
	})
}
