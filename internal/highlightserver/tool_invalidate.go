package highlightserver

import (
	"context"
	"fmt"

	"github.com/anatolykoptev/go_highlights/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerCacheInvalidate(server *mcp.Server, deps *Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "highlight_cache_invalidate",
		Description: "Drop cached transcripts so the next request re-fetches them. Pass a video URL to drop that video's transcripts and cached tool results, or all=true to clear the whole cache.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input InvalidateInput) (*mcp.CallToolResult, InvalidateOutput, error) {
		store := deps.Base.Store
		if store == nil {
			return nil, InvalidateOutput{}, fmt.Errorf("no cache configured")
		}

		if input.All {
			if err := store.InvalidateAll(ctx); err != nil {
				return nil, InvalidateOutput{}, err
			}
			return nil, InvalidateOutput{Invalidated: "all"}, nil
		}

		if input.URL == "" {
			return nil, InvalidateOutput{}, fmt.Errorf("url or all is required")
		}
		ref, err := engine.ParseSourceRef(input.URL)
		if err != nil {
			return nil, InvalidateOutput{}, err
		}
		// One prefix sweep covers every strategy's transcript plus any
		// cached tool results for the video.
		if err := store.InvalidatePrefix(ctx, engine.VideoPrefix(ref.ID)); err != nil {
			return nil, InvalidateOutput{}, err
		}
		return nil, InvalidateOutput{Invalidated: ref.ID}, nil
	})
}
