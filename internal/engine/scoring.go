package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Score is one window's relevance verdict. MatchStart and MatchEnd bound
// the cues that actually carried the matched terms, so the selector can
// tell two windows apart even when their outer bounds overlap.
type Score struct {
	Value      float64
	Terms      []string
	MatchStart time.Duration
	MatchEnd   time.Duration
}

// ScoringStrategy rates candidate windows. Implementations must be safe
// for concurrent use; Select fans windows out across workers.
type ScoringStrategy interface {
	Name() string
	Score(w Window) Score
}

// FallbackScorer is implemented by strategies that carry a second-chance
// term set for transcripts where the primary set matches nothing.
type FallbackScorer interface {
	Fallback() ScoringStrategy
}

// Keyword is a weighted search term.
type Keyword struct {
	Term   string
	Weight float64
}

// ParseKeywords accepts "term" and "term=weight" forms; a bare term
// weighs 1.0.
func ParseKeywords(raw []string) ([]Keyword, error) {
	out := make([]Keyword, 0, len(raw))
	for _, r := range raw {
		term, weightStr, found := strings.Cut(r, "=")
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		kw := Keyword{Term: term, Weight: 1.0}
		if found {
			w, err := strconv.ParseFloat(strings.TrimSpace(weightStr), 64)
			if err != nil || w <= 0 {
				return nil, fmt.Errorf("invalid keyword weight %q", r)
			}
			kw.Weight = w
		}
		out = append(out, kw)
	}
	return out, nil
}

// LexicalScorer counts case-insensitive keyword occurrences per cue.
// Each hit contributes the term's weight, and windows matching several
// distinct terms get a bonus per extra term so breadth beats repetition.
type LexicalScorer struct {
	name     string
	keywords []Keyword
	fallback *LexicalScorer
}

// distinctTermBonus rewards windows that touch more than one keyword.
const distinctTermBonus = 0.5

// NewLexicalScorer builds the primary lexical strategy. fallbackTerms,
// when non-empty, back a second scorer consulted only after the primary
// terms match nothing anywhere in the transcript.
func NewLexicalScorer(keywords []Keyword, fallbackTerms []string) *LexicalScorer {
	s := &LexicalScorer{name: "lexical", keywords: keywords}
	if len(fallbackTerms) > 0 {
		fb := make([]Keyword, 0, len(fallbackTerms))
		for _, t := range fallbackTerms {
			fb = append(fb, Keyword{Term: strings.ToLower(t), Weight: 1.0})
		}
		s.fallback = &LexicalScorer{name: "lexical_fallback", keywords: fb}
	}
	return s
}

func (s *LexicalScorer) Name() string { return s.name }

// Fallback returns the common-words scorer, or nil when none was
// configured.
func (s *LexicalScorer) Fallback() ScoringStrategy {
	if s.fallback == nil {
		return nil
	}
	return s.fallback
}

func (s *LexicalScorer) Score(w Window) Score {
	score := Score{MatchStart: -1}
	matched := map[string]bool{}

	for _, cue := range w.Cues {
		text := strings.ToLower(cue.Text)
		cueHit := false
		for _, kw := range s.keywords {
			n := strings.Count(text, kw.Term)
			if n == 0 {
				continue
			}
			score.Value += kw.Weight * float64(n)
			matched[kw.Term] = true
			cueHit = true
		}
		if cueHit {
			if score.MatchStart < 0 || cue.Start < score.MatchStart {
				score.MatchStart = cue.Start
			}
			if cue.End > score.MatchEnd {
				score.MatchEnd = cue.End
			}
		}
	}

	if len(matched) == 0 {
		return Score{}
	}
	score.Value += distinctTermBonus * float64(len(matched)-1)
	score.Terms = make([]string, 0, len(matched))
	for t := range matched {
		score.Terms = append(score.Terms, t)
	}
	sort.Strings(score.Terms)
	return score
}

// SemanticScorer delegates to an injected embedding-similarity function.
// The whole window is the match span because a dense score cannot point
// at individual cues.
type SemanticScorer struct {
	fn func(text string) float64
}

func NewSemanticScorer(fn func(text string) float64) *SemanticScorer {
	return &SemanticScorer{fn: fn}
}

func (s *SemanticScorer) Name() string { return "semantic" }

func (s *SemanticScorer) Score(w Window) Score {
	v := s.fn(w.Text())
	if v <= 0 {
		return Score{}
	}
	return Score{Value: v, MatchStart: w.Start, MatchEnd: w.End}
}
