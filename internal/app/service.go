// Package app wires the analysis pipeline: it selects influential actors,
// fans their watches out to a worker pool, collects verdicts and scores
// each actor's genuineness.
package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/okian/gisc/internal/adapters/eventstore"
	"github.com/okian/gisc/internal/adapters/mq/queue"
	"github.com/okian/gisc/internal/adapters/mq/worker"
	"github.com/okian/gisc/internal/adapters/repository"
	"github.com/okian/gisc/internal/config"
	"github.com/okian/gisc/internal/domain/genuineness"
	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/internal/domain/significance"
	"github.com/okian/gisc/pkg/logger"
	"github.com/okian/gisc/pkg/metrics"
)

// drainTimeout bounds how long a failed run waits for its workers.
const drainTimeout = 10 * time.Second

// Report is the result of one analysis run.
type Report struct {
	RunID       string                `json:"run_id"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
	Language    string                `json:"language,omitempty"`
	Influencers []model.ActorRank     `json:"influencers"`
	Verdicts    []model.Verdict       `json:"verdicts"`
	Genuineness []model.Genuineness   `json:"genuineness"`
	Outcomes    map[model.Outcome]int `json:"outcomes"`
}

// Service runs analyses against an event store and keeps the latest report.
type Service struct {
	cfg      *config.Config
	store    eventstore.Reader
	board    repository.Leaderboard
	renderer Renderer
	test     significance.Test
	genuine  genuineness.Validator
	logger   logger.Logger

	runMu  sync.Mutex
	report atomic.Pointer[Report]
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRenderer enables chart output for eligible windows.
func WithRenderer(r Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithLeaderboard replaces the default treap leaderboard.
func WithLeaderboard(b repository.Leaderboard) Option {
	return func(s *Service) {
		if b != nil {
			s.board = b
		}
	}
}

// New builds a service from cfg. Strategy names are resolved here so a
// bad configuration fails before any work starts.
func New(cfg *config.Config, store eventstore.Reader, opts ...Option) (*Service, error) {
	test, err := significance.New(cfg.Analysis.Significance, cfg.Analysis.DeviationThreshold)
	if err != nil {
		return nil, err
	}
	genuine, err := genuineness.New(cfg.Genuineness.Strategy,
		genuineness.WithMaxStdDev(cfg.Genuineness.MaxStdDev),
		genuineness.WithMinDelta(float64(cfg.Genuineness.MinDelta)),
	)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:     cfg,
		store:   store,
		board:   repository.NewTreapStore(),
		test:    test,
		genuine: genuine,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("analysis")
	}
	return s, nil
}

// Run executes one full analysis and publishes its report. Runs are
// serialised.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	began := time.Now()
	rep, err := s.run(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordRun(status, time.Since(began).Seconds())
	if err != nil {
		return nil, err
	}
	s.report.Store(rep)
	return rep, nil
}

func (s *Service) run(ctx context.Context) (*Report, error) {
	rep := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Outcomes:  make(map[model.Outcome]int),
	}

	lang, err := ResolveLanguage(ctx, s.store, s.cfg.Analysis.Language)
	if err != nil {
		return nil, err
	}
	rep.Language = lang

	influencers, err := NewSelector(s.store, s.board).Select(ctx, s.cfg.Analysis.Top)
	if err != nil {
		return nil, err
	}
	rep.Influencers = influencers
	s.logger.Info(ctx, "influencers selected",
		logger.String("run", rep.RunID),
		logger.Int("count", len(influencers)),
		logger.String("language", lang),
	)

	extractor := NewExtractor(s.store, s.cfg.Analysis.Window)
	eval := &Evaluator{
		store:     s.store,
		extractor: extractor,
		degree:    s.cfg.Analysis.Degree,
		test:      s.test,
		renderer:  s.renderer,
		language:  lang,
		logger:    s.logger,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		verdicts []model.Verdict
	)
	q := queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.Analysis.QueueSize))
	pool := worker.NewPool(s.cfg.Analysis.Workers, q, worker.ProcessorFunc(func(ctx context.Context, j worker.Job) error {
		v, err := eval.Evaluate(ctx, j)
		if err != nil {
			cancel()
			return err
		}
		mu.Lock()
		verdicts = append(verdicts, v)
		mu.Unlock()
		return nil
	}), worker.WithLogger(s.logger))
	pool.Start(ctx)

	jobs, perr := s.produce(ctx, extractor, q, influencers, lang)
	_ = q.Close()
	if perr != nil {
		// queued jobs are abandoned; workers get a bounded time to stop
		sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
		serr := pool.Shutdown(sctx)
		scancel()
		if serr != nil {
			return nil, fmt.Errorf("%w (%v)", perr, serr)
		}
	}
	if werr := pool.Wait(); werr != nil {
		return nil, werr
	}
	if perr != nil {
		return nil, perr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rank := make(map[string]model.ActorRank, len(influencers))
	for _, r := range influencers {
		rank[r.Actor] = r
	}
	SortVerdicts(verdicts, rank)
	rep.Verdicts = verdicts
	for _, v := range verdicts {
		rep.Outcomes[v.Outcome]++
	}
	rep.Genuineness = s.score(influencers, verdicts)
	rep.FinishedAt = time.Now().UTC()

	s.logger.Info(ctx, "analysis finished",
		logger.String("run", rep.RunID),
		logger.Int("jobs", jobs),
		logger.Int("eligible", rep.Outcomes[model.OutcomeEligible]+rep.Outcomes[model.OutcomeRendered]),
		logger.Duration("elapsed", rep.FinishedAt.Sub(rep.StartedAt)),
	)
	return rep, nil
}

// produce enqueues one job per (influencer, repository) and returns the
// number of jobs submitted.
func (s *Service) produce(ctx context.Context, x *Extractor, q queue.Queue, influencers []model.ActorRank, lang string) (int, error) {
	var n int
	for _, r := range influencers {
		watches, err := x.Watches(ctx, r.Actor, lang)
		if err != nil {
			return n, err
		}
		for _, w := range watches {
			j := model.Job{Rank: r.Rank, Actor: r.Actor, Followers: r.Followers, Watch: w}
			if err := q.EnqueueWait(ctx, j); err != nil {
				return n, fmt.Errorf("enqueue %s/%s: %w", r.Actor, w.Repo, err)
			}
			n++
		}
	}
	return n, nil
}

// score computes genuineness from every built window of each influencer,
// including skipped ones.
func (s *Service) score(influencers []model.ActorRank, verdicts []model.Verdict) []model.Genuineness {
	deltas := make(map[string][]float64, len(influencers))
	for _, v := range verdicts {
		if len(v.Curve) > 0 {
			deltas[v.Actor] = append(deltas[v.Actor], v.Delta())
		}
	}
	out := make([]model.Genuineness, 0, len(influencers))
	for _, r := range influencers {
		g := s.genuine.Validate(genuineness.Input{Actor: r.Actor, Followers: r.Followers, Deltas: deltas[r.Actor]})
		if g.Sufficient {
			metrics.RecordGenuineness(g.Genuine)
		}
		out = append(out, g)
	}
	return out
}

// SortVerdicts orders verdicts by actor rank, repository, then window start.
func SortVerdicts(vs []model.Verdict, rank map[string]model.ActorRank) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if ra, rb := rank[a.Actor].Rank, rank[b.Actor].Rank; ra != rb {
			return ra < rb
		}
		if a.Actor != b.Actor {
			return a.Actor < b.Actor
		}
		if a.Repo != b.Repo {
			return a.Repo < b.Repo
		}
		return a.Start.Before(b.Start)
	})
}

// Report returns the latest completed report.
func (s *Service) Report() (*Report, error) {
	rep := s.report.Load()
	if rep == nil {
		return nil, ErrNoReport
	}
	return rep, nil
}

// TopN returns the n most-followed actors from the last selection.
func (s *Service) TopN(ctx context.Context, n int) ([]model.ActorRank, error) {
	return s.board.TopN(ctx, n)
}

// Rank returns an actor's position in the last selection.
func (s *Service) Rank(ctx context.Context, actor string) (model.ActorRank, error) {
	return s.board.Rank(ctx, actor)
}

// Verdicts returns the latest verdicts, optionally only eligible ones.
func (s *Service) Verdicts(eligibleOnly bool) ([]model.Verdict, error) {
	rep, err := s.Report()
	if err != nil {
		return nil, err
	}
	if !eligibleOnly {
		return rep.Verdicts, nil
	}
	out := make([]model.Verdict, 0, len(rep.Verdicts))
	for _, v := range rep.Verdicts {
		if v.Eligible {
			out = append(out, v)
		}
	}
	return out, nil
}

// Genuineness returns the actor's score from the latest report.
func (s *Service) Genuineness(actor string) (model.Genuineness, error) {
	rep, err := s.Report()
	if err != nil {
		return model.Genuineness{}, err
	}
	for _, g := range rep.Genuineness {
		if g.Actor == actor {
			return g, nil
		}
	}
	return model.Genuineness{}, fmt.Errorf("%w: %s", ErrActorNotAnalyzed, actor)
}

// StartRefresh reruns the analysis every interval until the returned stop
// function is called. Overlapping runs are skipped.
func (s *Service) StartRefresh(ctx context.Context, every time.Duration) (stop func()) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(every), cron.FuncJob(func() {
		if _, err := s.Run(ctx); err != nil {
			metrics.RecordErrorByComponent("analysis", "refresh")
			s.logger.Error(ctx, "scheduled analysis failed", logger.Error(err))
		}
	}))
	c.Start()
	s.logger.Info(ctx, "refresh scheduled", logger.Duration("every", every))
	return func() { <-c.Stop().Done() }
}
