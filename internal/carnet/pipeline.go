package carnet

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Pipeline runs preprocess, OCR, matching and the decision policy for one
// photo. It never returns an error: anything that goes wrong inside ends as
// a manual review decision.
type Pipeline struct {
	pre     Preprocessor
	engine  Engine
	policy  Policy
	lang    string
	timeout time.Duration
}

type PipelineOption func(*Pipeline)

func WithPolicy(p Policy) PipelineOption {
	return func(pl *Pipeline) { pl.policy = p }
}

func WithLanguages(lang string) PipelineOption {
	return func(pl *Pipeline) { pl.lang = lang }
}

// WithTimeout caps a single OCR run, 0 disables the cap
func WithTimeout(d time.Duration) PipelineOption {
	return func(pl *Pipeline) { pl.timeout = d }
}

func NewPipeline(pre Preprocessor, engine Engine, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		pre:     pre,
		engine:  engine,
		policy:  DefaultPolicy(),
		lang:    DefaultLanguages,
		timeout: 30 * time.Second,
	}

	for _, o := range opts {
		o(p)
	}

	return p
}

type Result struct {
	Scan     Scan     `json:"scan"`
	Decision Decision `json:"decision"`
}

// Verify scans img and decides what happens to the record. attempts counts
// uploads including this one.
func (p *Pipeline) Verify(ctx context.Context, img []byte, expected string, attempts int) Result {
	s := p.Scan(ctx, img, expected)
	d := p.policy.Decide(s, attempts)

	zap.L().Debug("Carnet scan decided",
		zap.String("outcome", string(d.Outcome)),
		zap.Int("confidence", s.Match.Confidence),
		zap.Float64("engine_confidence", s.EngineConfidence),
		zap.Int("attempts", attempts),
		zap.Error(s.Err))

	return Result{Scan: s, Decision: d}
}

// Scan runs OCR and the matcher without deciding anything
func (p *Pipeline) Scan(ctx context.Context, img []byte, expected string) Scan {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	text, conf, err := p.engine.ExtractText(ctx, p.preprocess(img), p.lang)
	if err != nil {
		return Scan{Match: MatchText("", expected), Err: fmt.Errorf("failed to extract text, %w", err)}
	}

	return Scan{
		Text:             text,
		EngineConfidence: conf,
		Match:            MatchText(text, expected),
	}
}

func (p *Pipeline) preprocess(img []byte) (out []byte) {
	if p.pre == nil {
		return img
	}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("Preprocessor panicked, using original photo", zap.Any("panic", r))
			out = img
		}
	}()

	out = p.pre.Preprocess(img)
	if len(out) == 0 {
		return img
	}

	return out
}
