package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Raw payload format tags. Strategies declare which format they produce;
// the parser dispatches on the tag and falls back to content sniffing.
const (
	FormatVTT   = "vtt"   // WebVTT cue blocks
	FormatSRT   = "srt"   // SubRip numbered blocks
	FormatJSON3 = "json3" // YouTube timedtext JSON (events/segs)
	FormatSRV3  = "srv3"  // YouTube timedtext XML (<p t d> / <text start dur>)
)

// SourceRef identifies the video whose captions are being processed.
// ID is the stable identifier used for cache addressing; URL is kept for
// strategies that need the original watch page.
type SourceRef struct {
	ID  string
	URL string
}

func (r SourceRef) String() string { return r.ID }

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#/]+)`),
	regexp.MustCompile(`youtube\.com/v/([^&\n?#/]+)`),
}

// ParseSourceRef derives a SourceRef from a YouTube URL or a bare video ID.
func ParseSourceRef(raw string) (SourceRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SourceRef{}, errors.New("empty source reference")
	}
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(raw); len(m) == 2 {
			return SourceRef{ID: m[1], URL: raw}, nil
		}
	}
	if strings.ContainsAny(raw, "/?&= ") {
		return SourceRef{}, fmt.Errorf("could not extract video ID from %q", raw)
	}
	// Bare video ID.
	return SourceRef{ID: raw, URL: "https://www.youtube.com/watch?v=" + raw}, nil
}

// RawTranscript is an unparsed caption payload together with its declared
// format and the strategy that produced it. Written once, read many times.
type RawTranscript struct {
	Payload  []byte `json:"payload"`
	Format   string `json:"format"`
	Strategy string `json:"strategy"`
}

// Cue is a single timed text unit with millisecond-resolution offsets.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Dur returns the cue's time span.
func (c Cue) Dur() time.Duration { return c.End - c.Start }

// CanonicalTranscript is the deduplicated, start-ordered cue sequence
// produced by the parser. Consumed read-only by the selector.
type CanonicalTranscript struct {
	Cues     []Cue
	Duration time.Duration
}

// Text returns the full transcript text, cue texts joined by spaces.
func (t *CanonicalTranscript) Text() string {
	var sb strings.Builder
	for i, c := range t.Cues {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// WindowAt returns the cues overlapping [start, start+width) as a Window.
// The returned slice aliases t.Cues; callers must not mutate it.
func (t *CanonicalTranscript) WindowAt(start, width time.Duration) Window {
	end := start + width
	lo := -1
	hi := -1
	for i, c := range t.Cues {
		if c.Start < end && c.End > start {
			if lo < 0 {
				lo = i
			}
			hi = i
		} else if lo >= 0 && c.Start >= end {
			break
		}
	}
	w := Window{Start: start, End: end}
	if lo >= 0 {
		w.Cues = t.Cues[lo : hi+1]
		w.FirstIndex = lo
	}
	return w
}

// Window is a contiguous time-bounded slice of cues evaluated as one
// highlight candidate.
type Window struct {
	Cues       []Cue
	FirstIndex int           // index of Cues[0] in the source transcript
	Start      time.Duration // window lower bound
	End        time.Duration // window upper bound (exclusive)
}

// Text returns the window's cue texts joined by spaces.
func (w Window) Text() string {
	var sb strings.Builder
	for i, c := range w.Cues {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// Candidate is a scored window under consideration by the selector.
// MatchStart/MatchEnd bound the relevance-bearing cues inside the window;
// merging decisions are made on that span, not on the window bounds.
type Candidate struct {
	Start      time.Duration
	End        time.Duration
	MatchStart time.Duration
	MatchEnd   time.Duration
	Score      float64
	Terms      []string
	Text       string
}

// HighlightSegment is a finalized candidate promoted to output.
type HighlightSegment struct {
	Start   time.Duration
	End     time.Duration
	Excerpt string
	Summary string
	Score   float64
	Rank    int // 1 = highest score
	Terms   []string
}

// Pipeline stage names and statuses recorded in PipelineResult.
const (
	StageAcquire   = "acquire"
	StageParse     = "parse"
	StageSelect    = "select"
	StageSummarize = "summarize"

	StatusSuccess  = "success"
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

// StageResult records one stage's outcome for partial-failure reporting.
type StageResult struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// PipelineResult aggregates a run's outputs. Assembled once by the
// pipeline, never mutated afterwards.
type PipelineResult struct {
	Source     SourceRef
	Transcript *CanonicalTranscript
	Highlights []HighlightSegment
	Stages     []StageResult
}

// StageStatus returns the recorded status for a stage, or "" if the stage
// never ran.
func (r *PipelineResult) StageStatus(stage string) string {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s.Status
		}
	}
	return ""
}
