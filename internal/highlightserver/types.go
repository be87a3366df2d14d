package highlightserver

import "github.com/anatolykoptev/go_highlights/internal/engine"

type HighlightsInput struct {
	URL           string   `json:"url" jsonschema:"YouTube video URL or bare video ID"`
	Keywords      []string `json:"keywords,omitempty" jsonschema:"Weighted search terms, 'term' or 'term=2.5'. Defaults to the server-wide keyword set."`
	Count         int      `json:"count,omitempty" jsonschema:"Max highlight segments to return (default: 4)"`
	WindowSeconds int      `json:"window_seconds,omitempty" jsonschema:"Candidate window width in seconds (default: 45)"`
	MinGapSeconds int      `json:"min_gap_seconds,omitempty" jsonschema:"Minimum spacing between selected segments in seconds (default: 30)"`
	MinScore      float64  `json:"min_score,omitempty" jsonschema:"Score threshold below which windows are discarded (default: 0)"`
}

type Highlight struct {
	StartSeconds float64  `json:"start_seconds"`
	EndSeconds   float64  `json:"end_seconds"`
	Excerpt      string   `json:"excerpt"`
	Summary      string   `json:"summary,omitempty"`
	Score        float64  `json:"score"`
	Rank         int      `json:"rank"`
	Terms        []string `json:"terms,omitempty"`
}

type HighlightsOutput struct {
	VideoID         string               `json:"video_id"`
	DurationSeconds float64              `json:"duration_seconds,omitempty"`
	Highlights      []Highlight          `json:"highlights"`
	Stages          []engine.StageResult `json:"stages"`
}

type TranscriptInput struct {
	URL    string `json:"url" jsonschema:"YouTube video URL or bare video ID"`
	Format string `json:"format,omitempty" jsonschema:"Output format: text (default) or vtt"`
}

type TranscriptOutput struct {
	VideoID           string   `json:"video_id"`
	Format            string   `json:"format"`
	Transcript        string   `json:"transcript"`
	CueCount          int      `json:"cue_count"`
	DurationSeconds   float64  `json:"duration_seconds"`
	Strategy          string   `json:"strategy"`
	RecoveredFailures []string `json:"recovered_failures,omitempty"`
}

type InvalidateInput struct {
	URL string `json:"url,omitempty" jsonschema:"YouTube video URL or bare video ID whose cached transcripts to drop"`
	All bool   `json:"all,omitempty" jsonschema:"Drop every cached entry instead of a single video's"`
}

type InvalidateOutput struct {
	Invalidated string `json:"invalidated"`
}
