// Package highlightserver exposes the highlight engine over MCP:
// video_highlights, video_transcript, and highlight_cache_invalidate.
package highlightserver

import (
	"github.com/anatolykoptev/go_highlights/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Deps carries the fully wired base configuration the tools derive
// per-request pipelines from. Base must hold the store and the strategy
// ladder; per-request inputs override only the selection knobs.
type Deps struct {
	Base engine.Config
}

// RegisterTools registers all highlight tools on the given MCP server.
func RegisterTools(server *mcp.Server, deps *Deps) {
	registerVideoHighlights(server, deps)
	registerVideoTranscript(server, deps)
	registerCacheInvalidate(server, deps)
}
