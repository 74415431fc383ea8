package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/gisc/internal/adapters/eventstore"
	"github.com/okian/gisc/internal/adapters/render"
	"github.com/okian/gisc/internal/domain/growth"
	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/internal/domain/predict"
	"github.com/okian/gisc/internal/domain/significance"
	"github.com/okian/gisc/pkg/logger"
	"github.com/okian/gisc/pkg/metrics"
)

// Renderer draws an eligible window and returns where it was written.
type Renderer interface {
	Render(ctx context.Context, c render.Chart) (string, error)
}

// Evaluator runs one watch through extract, build, predict, evaluate and
// render. Only store failures and an invalid degree are returned as
// errors; everything else is reported through the verdict outcome.
type Evaluator struct {
	store     eventstore.Reader
	extractor *Extractor
	degree    int
	test      significance.Test
	renderer  Renderer // nil disables rendering
	language  string   // active language filter, used in labels
	logger    logger.Logger
}

// Evaluate returns the verdict for the window opened by j.Watch.
func (e *Evaluator) Evaluate(ctx context.Context, j model.Job) (model.Verdict, error) {
	w, err := e.extractor.Extract(ctx, j.Watch)
	if err != nil {
		return model.Verdict{}, err
	}
	baseline, err := e.store.CountWatchers(ctx, w.Repo, w.Start)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("baseline of %s: %w", w.Repo, err)
	}

	v := model.Verdict{
		Actor:    w.Actor,
		Repo:     w.Repo,
		Language: w.Language,
		Start:    w.Start,
		End:      w.End,
		Baseline: baseline,
	}
	curve, err := growth.Build(w, baseline)
	empty := errors.Is(err, growth.ErrEmptyWindow)
	v.Curve = curve

	watches, err := e.store.ListRepoWatches(ctx, w.Repo, w.Start)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("history of %s: %w", w.Repo, err)
	}
	history := growth.History(watches, w.Start)

	began := time.Now()
	poly, err := predict.Fit(history, w.Start, e.degree)
	metrics.RecordFitLatency(float64(time.Since(began).Microseconds()) / 1000)
	if err != nil {
		outcome, ferr := fitOutcome(err)
		if ferr != nil {
			return model.Verdict{}, ferr
		}
		e.logger.Debug(ctx, "window skipped",
			logger.String("actor", v.Actor),
			logger.String("repo", v.Repo),
			logger.Int("history", len(history)),
			logger.Error(err),
		)
		return e.finish(v, outcome, err.Error()), nil
	}
	e.logger.Debug(ctx, "history fitted",
		logger.String("actor", v.Actor),
		logger.String("repo", v.Repo),
		logger.Int("degree", poly.Degree()),
		logger.Int("history", len(history)),
	)
	v.Predicted = poly.Predict(curve)

	res, err := e.test.Evaluate(v.Curve, v.Predicted, baseline)
	if err != nil {
		return e.finish(v, model.OutcomeSkippedNotEligible, err.Error()), nil
	}
	v.MaxDeviation = res.MaxDeviation
	metrics.RecordMaxDeviation(res.MaxDeviation)

	switch {
	case empty:
		return e.finish(v, model.OutcomeSkippedNotEligible, growth.ErrEmptyWindow.Error()), nil
	case !res.Eligible:
		return e.finish(v, model.OutcomeSkippedNotEligible,
			fmt.Sprintf("%s score %.3f within threshold", e.test.Name(), res.Score)), nil
	}

	v.Eligible = true
	if e.renderer == nil {
		return e.finish(v, model.OutcomeEligible, ""), nil
	}
	path, err := e.renderer.Render(ctx, render.Chart{
		Label:     render.Label(e.language, v.Actor, v.Repo),
		Name:      render.FileName(e.language, v.Actor, v.Repo),
		Curve:     v.Curve,
		Predicted: v.Predicted,
		Start:     v.Start,
		End:       v.End,
	})
	if err != nil {
		metrics.RecordErrorByComponent("render", "write")
		e.logger.Error(ctx, "render chart",
			logger.String("actor", v.Actor),
			logger.String("repo", v.Repo),
			logger.Error(err),
		)
		return e.finish(v, model.OutcomeEligible, err.Error()), nil
	}
	v.Chart = path
	return e.finish(v, model.OutcomeRendered, ""), nil
}

// fitOutcome maps a fit error to the window outcome. Too little history
// skips the window as such; a fit that cannot be determined is not
// eligible. An invalid degree is a configuration error and aborts the run.
func fitOutcome(err error) (model.Outcome, error) {
	switch {
	case errors.Is(err, predict.ErrInsufficientHistory):
		return model.OutcomeSkippedInsufficientHistory, nil
	case errors.Is(err, predict.ErrIllConditioned):
		return model.OutcomeSkippedNotEligible, nil
	default:
		return "", err
	}
}

func (e *Evaluator) finish(v model.Verdict, o model.Outcome, reason string) model.Verdict {
	v.Outcome = o
	v.Reason = reason
	metrics.RecordWindowOutcome(string(o))
	return v
}
