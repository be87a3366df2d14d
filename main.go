// go_highlights — YouTube transcript & highlight extraction MCP server.
//
// Exposes three MCP tools: video_highlights, video_transcript,
// highlight_cache_invalidate. Runs as HTTP MCP server or stdio transport.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_highlights/internal/engine"
	"github.com/anatolykoptev/go_highlights/internal/engine/sources"
	"github.com/anatolykoptev/go_highlights/internal/highlightserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	cfg, cleanup := buildConfig()
	defer cleanup()

	slog.Info("starting go_highlights",
		slog.String("port", mcpPort),
		slog.Int("strategies", len(cfg.Strategies)),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_highlights",
		Version: version,
	}, nil)

	highlightserver.RegisterTools(server, &highlightserver.Deps{Base: cfg})
	slog.Info("tools registered", slog.Int("count", 3))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_highlights",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func buildConfig() (engine.Config, func()) {
	cfg := engine.DefaultConfig()

	if path := env.Str("CONFIG_FILE", ""); path != "" {
		loaded, err := engine.LoadConfig(path)
		if err != nil {
			slog.Warn("config file load failed, using defaults", slog.Any("error", err))
		} else {
			cfg = loaded
		}
	}

	cfg.TargetCount = env.Int("TARGET_COUNT", cfg.TargetCount)
	cfg.WindowWidth = env.Duration("WINDOW_WIDTH", cfg.WindowWidth)
	cfg.WindowStride = env.Duration("WINDOW_STRIDE", cfg.WindowStride)
	cfg.MinGap = env.Duration("MIN_GAP", cfg.MinGap)
	cfg.Workers = env.Int("SCORING_WORKERS", cfg.Workers)
	cfg.StrategyTimeout = env.Duration("STRATEGY_TIMEOUT", cfg.StrategyTimeout)
	if langs := env.List("CAPTION_LANGUAGES", ""); len(langs) > 0 {
		cfg.Languages = langs
	}
	if kw := env.List("KEYWORDS", ""); len(kw) > 0 {
		cfg.Keywords = kw
	}

	cfg.HTTPClient = engine.NewHTTPClient(
		env.Duration("FETCH_TIMEOUT", 15*time.Second),
		env.Float("FETCH_RPS", 4),
	)

	cfg.Strategies = buildStrategies(cfg)

	store, cleanup := buildStore()
	cfg.Store = store
	return cfg, cleanup
}

// buildStrategies assembles the acquisition ladder: official captions,
// auto captions, the watch page scrape, and yt-dlp when installed.
func buildStrategies(cfg engine.Config) []engine.Strategy {
	strategies := []engine.Strategy{
		&sources.PlayerCaptions{Client: cfg.HTTPClient, Langs: cfg.Languages},
		&sources.PlayerCaptions{Client: cfg.HTTPClient, Langs: cfg.Languages, AllowAuto: true},
		&sources.WatchPage{Client: cfg.HTTPClient, Langs: cfg.Languages},
	}
	if ytdlp := sources.NewYtDlp(cfg.Languages); ytdlp != nil {
		strategies = append(strategies, ytdlp)
		slog.Info("yt-dlp strategy enabled", slog.String("binary", ytdlp.Binary))
	} else {
		slog.Info("yt-dlp not found on PATH, running without subprocess fallback")
	}
	return strategies
}

// buildStore picks the transcript cache: Redis when REDIS_URL is set,
// otherwise SQLite under the home directory, and in-memory as the last
// resort. A broken store never stops startup; acquisition degrades to
// no-caching on its own.
func buildStore() (engine.Store, func()) {
	noop := func() {}

	if redisURL := env.Str("REDIS_URL", ""); redisURL != "" {
		store, err := engine.NewRedisStore(redisURL, env.Duration("CACHE_TTL", 7*24*time.Hour))
		if err != nil {
			slog.Warn("redis store init failed, falling back to sqlite", slog.Any("error", err))
		} else {
			slog.Info("redis transcript store initialized")
			return store, func() { store.Close() }
		}
	}

	dbPath := env.Str("TRANSCRIPT_DB", defaultDBPath())
	store, err := engine.NewSQLiteStore(dbPath)
	if err != nil {
		slog.Warn("sqlite store init failed, using in-memory cache", slog.Any("error", err))
		return engine.NewMemoryStore(), noop
	}
	slog.Info("sqlite transcript store initialized", slog.String("path", dbPath))
	return store, func() { store.Close() }
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "transcripts.db"
	}
	return filepath.Join(home, ".go_highlights", "transcripts.db")
}
