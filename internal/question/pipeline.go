package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultCallTimeout = 20 * time.Second
	DefaultRetries     = 1
)

// Pipeline composes generation and curation, bounding each call with a
// timeout and retrying failed calls.
type Pipeline struct {
	svc     Service
	logger  *slog.Logger
	timeout time.Duration
	retries int
}

type PipelineOption func(*Pipeline)

func WithCallTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

func WithRetries(n int) PipelineOption {
	return func(p *Pipeline) { p.retries = n }
}

func NewPipeline(svc Service, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		svc:     svc,
		logger:  logger,
		timeout: DefaultCallTimeout,
		retries: DefaultRetries,
	}
	for _, o := range opts {
		o(p)
	}
	if p.retries < 0 {
		p.retries = 0
	}
	return p
}

// Ask generates a question for gameName and curates it. An invalid curated
// question is not an error; callers check CurateResult.Accepted.
func (p *Pipeline) Ask(ctx context.Context, gameName string) (CurateResult, error) {
	gen, err := call(ctx, p, "generate", func(ctx context.Context) (GenerateResult, error) {
		return p.svc.Generate(ctx, GenerateRequest{GameName: gameName})
	})
	if err != nil {
		return CurateResult{}, fmt.Errorf("generating question: %w", err)
	}

	cur, err := call(ctx, p, "curate", func(ctx context.Context) (CurateResult, error) {
		return p.svc.Curate(ctx, CurateRequest{Question: gen.Question})
	})
	if err != nil {
		return CurateResult{}, fmt.Errorf("curating question: %w", err)
	}
	return cur, nil
}

func call[T any](ctx context.Context, p *Pipeline, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		res T
		err error
	)
	for attempt := 0; attempt <= p.retries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		res, err = fn(callCtx)
		cancel()
		if err == nil {
			return res, nil
		}
		// Cancelled by the caller, not retried.
		if ctx.Err() != nil {
			return res, errors.Join(err, ctx.Err())
		}
		p.logger.Warn("question call failed", "op", op, "attempt", attempt+1, "error", err)
	}
	return res, err
}
