package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/gisc/internal/domain/model"
)

// MemStore is an in-memory Store indexed by repository and actor.
type MemStore struct {
	mu      sync.RWMutex
	seq     int64
	ids     map[string]struct{}
	byRepo  map[string][]model.Event
	watches map[string][]model.Event // actor -> watch events
	follows map[string]map[string]time.Time
	langs   map[string]struct{}
	latest  time.Time
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		ids:     make(map[string]struct{}),
		byRepo:  make(map[string][]model.Event),
		watches: make(map[string][]model.Event),
		follows: make(map[string]map[string]time.Time),
		langs:   make(map[string]struct{}),
	}
}

// Append stores events not seen before and returns how many were inserted.
func (s *MemStore) Append(ctx context.Context, events ...model.Event) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, e := range events {
		if _, dup := s.ids[e.ID]; dup {
			continue
		}
		s.ids[e.ID] = struct{}{}
		s.seq++
		e.Seq = s.seq
		e.At = e.At.UTC()
		inserted++

		if e.At.After(s.latest) {
			s.latest = e.At
		}
		if e.Language != "" {
			s.langs[e.Language] = struct{}{}
		}
		if e.Repo != "" {
			s.byRepo[e.Repo] = insertOrdered(s.byRepo[e.Repo], e)
		}
		switch e.Type {
		case model.WatchEvent:
			s.watches[e.Actor] = insertOrdered(s.watches[e.Actor], e)
		case model.FollowEvent:
			if e.Target == "" {
				continue
			}
			followers := s.follows[e.Target]
			if followers == nil {
				followers = make(map[string]time.Time)
				s.follows[e.Target] = followers
			}
			if first, ok := followers[e.Actor]; !ok || e.At.Before(first) {
				followers[e.Actor] = e.At
			}
		}
	}
	return inserted, nil
}

// insertOrdered keeps list sorted by (At, Seq); e always has the largest Seq.
func insertOrdered(list []model.Event, e model.Event) []model.Event {
	i := sort.Search(len(list), func(i int) bool { return e.Before(list[i]) })
	list = append(list, model.Event{})
	copy(list[i+1:], list[i:])
	list[i] = e
	return list
}

func (s *MemStore) ListEvents(ctx context.Context, repo string, r model.TimeRange) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byRepo[repo]
	lo := sort.Search(len(list), func(i int) bool { return !list[i].At.Before(r.From) })
	hi := sort.Search(len(list), func(i int) bool { return !list[i].At.Before(r.To) })
	if lo >= hi {
		return nil, nil
	}
	return append([]model.Event(nil), list[lo:hi]...), nil
}

func (s *MemStore) ListWatchEvents(ctx context.Context, actor string) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Event(nil), s.watches[actor]...), nil
}

func (s *MemStore) ListRepoWatches(ctx context.Context, repo string, before time.Time) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Event
	for _, e := range s.byRepo[repo] {
		if !e.At.Before(before) {
			break
		}
		if e.IsWatch() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemStore) CountFollowers(ctx context.Context, actor string, asOf time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countUntil(s.follows[actor], asOf), nil
}

func (s *MemStore) CountWatchers(ctx context.Context, repo string, asOf time.Time) (int, error) {
	watches, err := s.ListRepoWatches(ctx, repo, asOf)
	return len(watches), err
}

func (s *MemStore) FollowerCounts(ctx context.Context, asOf time.Time) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.follows))
	for actor, followers := range s.follows {
		if n := countUntil(followers, asOf); n > 0 {
			out[actor] = n
		}
	}
	return out, nil
}

func countUntil(followers map[string]time.Time, asOf time.Time) int {
	n := 0
	for _, at := range followers {
		if !at.After(asOf) {
			n++
		}
	}
	return n
}

func (s *MemStore) Latest(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, nil
}

func (s *MemStore) Languages(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.langs))
	for l := range s.langs {
		out = append(out, l)
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }
