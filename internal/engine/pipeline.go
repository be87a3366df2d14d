package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Pipeline runs acquire, parse, select, and summarize in order with a
// per-stage failure policy: acquire and parse failures are fatal, an
// empty selection degrades the run, and a summarizer error degrades only
// the summaries.
type Pipeline struct {
	cfg    Config
	chain  *Chain
	scorer ScoringStrategy
}

// New validates cfg and wires the pipeline. A nil Store falls back to an
// in-process MemoryStore so a zero-infrastructure pipeline still caches
// within its own lifetime.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}

	var scorer ScoringStrategy
	switch cfg.Scoring {
	case ScoringSemantic:
		scorer = NewSemanticScorer(cfg.SemanticFn)
	default:
		keywords, err := ParseKeywords(cfg.Keywords)
		if err != nil {
			return nil, fmt.Errorf("pipeline config: %w", err)
		}
		scorer = NewLexicalScorer(keywords, cfg.FallbackKeywords)
	}

	return &Pipeline{
		cfg: cfg,
		chain: &Chain{
			Store:      cfg.Store,
			Strategies: cfg.Strategies,
			Timeout:    cfg.StrategyTimeout,
		},
		scorer: scorer,
	}, nil
}

// Store exposes the cache the pipeline was built with.
func (p *Pipeline) Store() Store { return p.cfg.Store }

// Run executes the full pipeline for ref. On a fatal stage the returned
// result still carries the stage trace alongside the error.
func (p *Pipeline) Run(ctx context.Context, ref SourceRef) (*PipelineResult, error) {
	res := &PipelineResult{Source: ref}

	raw, attempts, err := p.chain.Acquire(ctx, ref)
	if err != nil {
		res.Stages = append(res.Stages, StageResult{Stage: StageAcquire, Status: StatusFailed, Detail: err.Error()})
		countRun(StatusFailed)
		return res, err
	}
	status := StatusSuccess
	detail := raw.Strategy
	if len(attempts) > 0 {
		status = StatusDegraded
		detail = fmt.Sprintf("%s after %d failed strategies", raw.Strategy, len(attempts))
	}
	res.Stages = append(res.Stages, StageResult{Stage: StageAcquire, Status: status, Detail: detail})

	return p.finish(ctx, res, raw)
}

// RunTranscript executes the pipeline on an already-acquired payload,
// recording the acquire stage as skipped.
func (p *Pipeline) RunTranscript(ctx context.Context, ref SourceRef, raw RawTranscript) (*PipelineResult, error) {
	res := &PipelineResult{Source: ref}
	res.Stages = append(res.Stages, StageResult{Stage: StageAcquire, Status: StatusSkipped})
	return p.finish(ctx, res, raw)
}

func (p *Pipeline) finish(ctx context.Context, res *PipelineResult, raw RawTranscript) (*PipelineResult, error) {
	transcript, err := Parse(raw)
	if err != nil {
		res.Stages = append(res.Stages, StageResult{Stage: StageParse, Status: StatusFailed, Detail: err.Error()})
		countRun(StatusFailed)
		return res, err
	}
	res.Transcript = transcript
	res.Stages = append(res.Stages, StageResult{Stage: StageParse, Status: StatusSuccess,
		Detail: fmt.Sprintf("%d cues", len(transcript.Cues))})

	segs, err := Select(transcript, p.scorer, p.cfg.SelectOptions())
	switch {
	case errors.Is(err, ErrNoSegmentsFound):
		res.Stages = append(res.Stages, StageResult{Stage: StageSelect, Status: StatusDegraded, Detail: err.Error()})
	case err != nil:
		res.Stages = append(res.Stages, StageResult{Stage: StageSelect, Status: StatusFailed, Detail: err.Error()})
		countRun(StatusFailed)
		return res, err
	case len(segs) == 0:
		res.Stages = append(res.Stages, StageResult{Stage: StageSelect, Status: StatusDegraded, Detail: "no segments above threshold"})
	default:
		res.Highlights = segs
		res.Stages = append(res.Stages, StageResult{Stage: StageSelect, Status: StatusSuccess,
			Detail: fmt.Sprintf("%d segments", len(segs))})
	}

	res.Stages = append(res.Stages, p.summarize(ctx, res))

	countRun(runStatus(res))
	return res, nil
}

// summarize annotates selected segments through the injected summarizer.
// No summarizer configured means the stage is skipped, not failed; a
// summarizer error leaves the excerpts standing and degrades the stage.
func (p *Pipeline) summarize(ctx context.Context, res *PipelineResult) StageResult {
	if p.cfg.Summarizer == nil || len(res.Highlights) == 0 {
		return StageResult{Stage: StageSummarize, Status: StatusSkipped}
	}
	var failed int
	for i := range res.Highlights {
		summary, err := p.cfg.Summarizer(ctx, res.Highlights[i].Excerpt)
		if err != nil {
			incrSummarizerErrors()
			failed++
			slog.Warn("summarizer failed for segment",
				"video", res.Source.ID, "rank", res.Highlights[i].Rank, "error", err)
			continue
		}
		res.Highlights[i].Summary = summary
	}
	if failed > 0 {
		return StageResult{Stage: StageSummarize, Status: StatusDegraded,
			Detail: fmt.Sprintf("%d of %d summaries failed", failed, len(res.Highlights))}
	}
	return StageResult{Stage: StageSummarize, Status: StatusSuccess}
}

func runStatus(res *PipelineResult) string {
	for _, s := range res.Stages {
		if s.Status == StatusDegraded {
			return StatusDegraded
		}
	}
	return StatusSuccess
}
