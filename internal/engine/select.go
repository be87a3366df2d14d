package engine

import (
	"sort"
	"sync"
	"time"
)

// SelectOptions tune the sliding-window search. Zero values are not
// defaulted here; Config.SelectOptions produces a complete set.
type SelectOptions struct {
	TargetCount int
	WindowWidth time.Duration
	Stride      time.Duration
	MinGap      time.Duration
	MinScore    float64
	Workers     int
}

const maxExcerptLen = 400

// Select slides fixed-width windows across the transcript, scores them
// concurrently, merges candidates whose matched spans overlap, and picks
// the top windows greedily by score while keeping at least MinGap between
// the selected time spans. Output is chronological; Rank preserves score
// order.
//
// A lexical scorer whose terms match nowhere in the transcript retries
// once with its fallback term set and yields ErrNoSegmentsFound when that
// also comes up empty. Terms that matched but fell below MinScore do not
// trigger the fallback. Scorers without a fallback yield an empty,
// error-free result instead.
func Select(t *CanonicalTranscript, scorer ScoringStrategy, opts SelectOptions) ([]HighlightSegment, error) {
	windows := collectWindows(t, opts)
	if len(windows) == 0 {
		return nil, nil
	}

	cands, matched := scoreWindows(windows, scorer, opts)
	if len(cands) == 0 {
		fs, ok := scorer.(FallbackScorer)
		if !ok {
			return nil, nil
		}
		if fb := fs.Fallback(); fb != nil && !matched {
			incrFallbackScoring()
			cands, _ = scoreWindows(windows, fb, opts)
		}
		if len(cands) == 0 {
			return nil, ErrNoSegmentsFound
		}
	}

	cands = mergeOverlapping(cands)

	// Highest score first; earlier start breaks ties so runs are stable.
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Start < cands[j].Start
	})

	var picked []Candidate
	for _, c := range cands {
		if len(picked) >= opts.TargetCount {
			break
		}
		tooClose := false
		for _, p := range picked {
			if gapBetween(c, p) < opts.MinGap {
				tooClose = true
				break
			}
		}
		if !tooClose {
			picked = append(picked, c)
		}
	}

	segs := make([]HighlightSegment, len(picked))
	for i, c := range picked {
		segs[i] = HighlightSegment{
			Start:   c.Start,
			End:     c.End,
			Excerpt: Excerpt(c.Text, maxExcerptLen),
			Score:   c.Score,
			Rank:    i + 1,
			Terms:   c.Terms,
		}
	}
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	return segs, nil
}

// collectWindows materializes the stride walk, skipping empty windows and
// strides that land on the exact same cue run as the previous window.
func collectWindows(t *CanonicalTranscript, opts SelectOptions) []Window {
	var windows []Window
	lastFirst, lastLen := -1, -1
	for start := time.Duration(0); start < t.Duration; start += opts.Stride {
		w := t.WindowAt(start, opts.WindowWidth)
		if len(w.Cues) == 0 {
			continue
		}
		if w.FirstIndex == lastFirst && len(w.Cues) == lastLen {
			continue
		}
		lastFirst, lastLen = w.FirstIndex, len(w.Cues)
		windows = append(windows, w)
	}
	return windows
}

// scoreWindows fans windows out over a bounded worker pool. Results land
// in an indexed slice so the candidate order is deterministic regardless
// of scheduling. The second return reports whether any window scored
// above zero before the MinScore cutoff, which gates the fallback path.
func scoreWindows(windows []Window, scorer ScoringStrategy, opts SelectOptions) ([]Candidate, bool) {
	scores := make([]Score, len(windows))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(windows) {
		workers = len(windows)
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				scores[i] = scorer.Score(windows[i])
			}
		}()
	}
	for i := range windows {
		idx <- i
	}
	close(idx)
	wg.Wait()
	addWindowsScored(len(windows))

	var cands []Candidate
	matched := false
	for i, s := range scores {
		if s.Value > 0 {
			matched = true
		}
		if s.Value <= 0 || s.Value < opts.MinScore {
			continue
		}
		w := windows[i]
		cands = append(cands, Candidate{
			Start:      w.Start,
			End:        w.End,
			MatchStart: s.MatchStart,
			MatchEnd:   s.MatchEnd,
			Score:      s.Value,
			Terms:      s.Terms,
			Text:       w.Text(),
		})
	}
	return cands, matched
}

// mergeOverlapping collapses candidates whose matched spans intersect.
// Overlapping windows from adjacent strides usually hit the same cues;
// the higher-scoring window keeps its bounds and the term sets union.
func mergeOverlapping(cands []Candidate) []Candidate {
	if len(cands) < 2 {
		return cands
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].MatchStart < cands[j].MatchStart })

	out := cands[:1]
	for _, c := range cands[1:] {
		cur := &out[len(out)-1]
		if c.MatchStart < cur.MatchEnd {
			terms := unionTerms(cur.Terms, c.Terms)
			if c.Score > cur.Score {
				c.Terms = terms
				if cur.MatchEnd > c.MatchEnd {
					c.MatchEnd = cur.MatchEnd
				}
				*cur = c
			} else {
				cur.Terms = terms
				if c.MatchEnd > cur.MatchEnd {
					cur.MatchEnd = c.MatchEnd
				}
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

func unionTerms(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for _, t := range a {
		seen[t] = true
	}
	for _, t := range b {
		seen[t] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// gapBetween measures the distance between two candidates' time spans,
// the same spans the output segments carry; intersecting spans have gap
// zero, so MinGap > 0 never admits overlapping segments.
func gapBetween(a, b Candidate) time.Duration {
	if a.Start > b.End {
		return a.Start - b.End
	}
	if b.Start > a.End {
		return b.Start - a.End
	}
	return 0
}
