// Package synth writes deterministic GitHub-archive-shaped event streams: a
// follower graph skewed towards a few influencers, steady background
// watching, and watch bursts right after each influencer watch.
package synth

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gisc/internal/domain/model"
)

// ErrInvalidConfig is returned for non-positive sizes.
var ErrInvalidConfig = errors.New("invalid generator config")

type repository struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Language string `json:"language,omitempty"`
}

// record follows the 2012 timeline layout, plus an id.
type record struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	CreatedAt  string      `json:"created_at"`
	Actor      string      `json:"actor"`
	Repository *repository `json:"repository,omitempty"`
	Payload    any         `json:"payload"`
}

type generator struct {
	cfg     Config
	rng     *rand.Rand
	repos   []repository
	users   []string
	inf     []string
	records []record
	at      []time.Time
	stats   Stats
}

// Influencer returns the login of the i-th influencer.
func Influencer(i int) string { return fmt.Sprintf("influencer-%d", i) }

// Generate writes the archive described by cfg to w, one JSON record per
// line in time order.
func Generate(ctx context.Context, cfg Config, w io.Writer) (Stats, error) {
	if cfg.Hours <= 0 || cfg.Users <= 0 || cfg.Repos <= 0 || cfg.Influencers < 0 {
		return Stats{}, fmt.Errorf("%w: %+v", ErrInvalidConfig, cfg)
	}
	g := &generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
	g.setup()

	g.follows()
	g.background()
	g.influence()

	order := make([]int, len(g.records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return g.at[order[a]].Before(g.at[order[b]]) })

	enc := json.NewEncoder(w)
	for _, i := range order {
		if err := ctx.Err(); err != nil {
			return g.stats, err
		}
		if err := enc.Encode(g.records[i]); err != nil {
			return g.stats, err
		}
	}
	return g.stats, nil
}

// WriteFile generates into path, gzip-compressed when path ends in .gz.
func WriteFile(ctx context.Context, cfg Config, path string) (st Stats, err error) {
	f, err := os.Create(path)
	if err != nil {
		return Stats{}, err
	}
	defer func() { err = errors.Join(err, f.Close()) }()

	if !strings.HasSuffix(path, ".gz") {
		return Generate(ctx, cfg, f)
	}
	zw := gzip.NewWriter(f)
	st, err = Generate(ctx, cfg, zw)
	return st, errors.Join(err, zw.Close())
}

func (g *generator) setup() {
	for i := 0; i < g.cfg.Users; i++ {
		g.users = append(g.users, fmt.Sprintf("user-%04d", i))
	}
	for i := 0; i < g.cfg.Influencers; i++ {
		g.inf = append(g.inf, Influencer(i))
	}
	for i := 0; i < g.cfg.Repos; i++ {
		owner := g.users[i%len(g.users)]
		name := fmt.Sprintf("project-%02d", i)
		r := repository{Owner: owner, Name: name, URL: model.RepoURL(owner + "/" + name)}
		if n := len(g.cfg.Languages); n > 0 {
			r.Language = g.cfg.Languages[i%n]
		}
		g.repos = append(g.repos, r)
	}
}

func (g *generator) span() time.Duration { return time.Duration(g.cfg.Hours) * time.Hour }

func (g *generator) randomTime(from, within time.Duration) time.Time {
	if within <= 0 {
		return g.cfg.Start.Add(from)
	}
	return g.cfg.Start.Add(from + time.Duration(g.rng.Int63n(int64(within)/int64(time.Second)))*time.Second)
}

func (g *generator) emit(t model.EventType, actor string, repo *repository, at time.Time, payload any) {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		panic(err) // math/rand never fails to read
	}
	g.records = append(g.records, record{
		ID:         id.String(),
		Type:       string(t),
		CreatedAt:  at.UTC().Format(time.RFC3339),
		Actor:      actor,
		Repository: repo,
		Payload:    payload,
	})
	g.at = append(g.at, at)
	g.stats.Events++
	switch t {
	case model.FollowEvent:
		g.stats.Follows++
	case model.WatchEvent:
		g.stats.Watches++
	case model.PushEvent:
		g.stats.Pushes++
	}
}

func (g *generator) follow(from, to string) {
	g.emit(model.FollowEvent, from, nil, g.randomTime(0, time.Hour),
		map[string]any{"target": map[string]string{"login": to}})
}

func (g *generator) follows() {
	for _, u := range g.users {
		for _, inf := range g.inf {
			if g.rng.Float64() < followProbability {
				g.follow(u, inf)
			}
		}
		for k := 0; k < casualFollows; k++ {
			if v := g.users[g.rng.Intn(len(g.users))]; v != u {
				g.follow(u, v)
			}
		}
	}
}

func (g *generator) watch(actor string, repo int, at time.Time) {
	r := g.repos[repo]
	g.emit(model.WatchEvent, actor, &r, at, map[string]string{"action": "started"})
}

func (g *generator) background() {
	for i := range g.repos {
		for h := 0; h < g.cfg.Hours; h++ {
			for n := g.rng.Intn(2*g.cfg.BaseRate + 1); n > 0; n-- {
				g.watch(g.users[g.rng.Intn(len(g.users))], i, g.randomTime(time.Duration(h)*time.Hour, time.Hour))
			}
		}
		for n := 0; n < pushesPerRepo; n++ {
			r := g.repos[i]
			g.emit(model.PushEvent, r.Owner, &r, g.randomTime(0, g.span()), map[string]int{"size": 1 + g.rng.Intn(5)})
		}
	}
}

func (g *generator) influence() {
	latest := g.span() - influencerAfter - burstSpan
	for _, inf := range g.inf {
		for _, repo := range g.rng.Perm(len(g.repos))[:min(g.cfg.Influence, len(g.repos))] {
			t0 := g.randomTime(influencerAfter, latest)
			g.watch(inf, repo, t0)
			for n := 0; n < g.cfg.Burst; n++ {
				at := t0.Add(time.Second + time.Duration(g.rng.Int63n(int64(burstSpan/time.Second)))*time.Second)
				g.watch(g.users[g.rng.Intn(len(g.users))], repo, at)
			}
		}
	}
}
