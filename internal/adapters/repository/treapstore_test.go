package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/okian/gisc/internal/domain/model"
)

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	store.Set(ctx, "alice", 120)

	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	entry, err := store.Rank(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Followers != 120 {
		t.Errorf("unexpected entry %+v", entry)
	}

	entries, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Actor != "alice" {
		t.Errorf("unexpected top entries %+v", entries)
	}
}

func TestTreapStore_Ordering(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	store.Set(ctx, "carol", 50)
	store.Set(ctx, "alice", 300)
	store.Set(ctx, "bob", 50)
	store.Set(ctx, "dave", 10)

	entries, err := store.TopN(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []model.ActorRank{
		{Rank: 1, Actor: "alice", Followers: 300},
		{Rank: 2, Actor: "bob", Followers: 50},
		{Rank: 3, Actor: "carol", Followers: 50},
	}
	if fmt.Sprint(entries) != fmt.Sprint(want) {
		t.Errorf("TopN(3) = %+v, want %+v", entries, want)
	}

	r, err := store.Rank(ctx, "carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Rank != 3 {
		t.Errorf("carol rank = %d, want 3", r.Rank)
	}
}

func TestTreapStore_Update(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	store.Set(ctx, "alice", 10)
	store.Set(ctx, "bob", 20)
	store.Set(ctx, "alice", 30)
	store.Set(ctx, "alice", 30)

	if store.Count(ctx) != 2 {
		t.Fatalf("count = %d, want 2", store.Count(ctx))
	}
	top, _ := store.TopN(ctx, 1)
	if top[0].Actor != "alice" || top[0].Followers != 30 {
		t.Errorf("top = %+v", top[0])
	}

	store.Set(ctx, "alice", 5)
	r, _ := store.Rank(ctx, "alice")
	if r.Rank != 2 {
		t.Errorf("alice rank after drop = %d, want 2", r.Rank)
	}
}

func TestTreapStore_Replace(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithSeed(7))
	store.Set(ctx, "stale", 1000)

	store.Replace(ctx, map[string]int{"a": 3, "b": 2, "c": 1})

	if _, err := store.Rank(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for replaced actor, got %v", err)
	}
	top, _ := store.TopN(ctx, 10)
	if len(top) != 3 || top[0].Actor != "a" || top[2].Actor != "c" {
		t.Errorf("unexpected top after replace: %+v", top)
	}
}

func TestTreapStore_EdgeCases(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	if _, err := store.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
	if _, err := store.Rank(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	top, err := store.TopN(ctx, 5)
	if err != nil || len(top) != 0 {
		t.Errorf("empty TopN = %v, %v", top, err)
	}
}

func TestTreapStore_RankMatchesSort(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()
	rng := rand.New(rand.NewSource(1))

	counts := make(map[string]int)
	for i := 0; i < 2000; i++ {
		actor := fmt.Sprintf("user%04d", rng.Intn(800))
		followers := rng.Intn(50)
		counts[actor] = followers
		store.Set(ctx, actor, followers)
	}

	type kv struct {
		actor     string
		followers int
	}
	var want []kv
	for a, f := range counts {
		want = append(want, kv{a, f})
	}
	sort.Slice(want, func(i, j int) bool {
		if want[i].followers != want[j].followers {
			return want[i].followers > want[j].followers
		}
		return want[i].actor < want[j].actor
	})

	top, err := store.TopN(ctx, len(want)+10)
	if err != nil {
		t.Fatalf("TopN: %v", err)
	}
	if len(top) != len(want) {
		t.Fatalf("TopN returned %d entries, want %d", len(top), len(want))
	}
	for i, w := range want {
		if top[i].Actor != w.actor || top[i].Followers != w.followers || top[i].Rank != i+1 {
			t.Fatalf("position %d = %+v, want %+v", i, top[i], w)
		}
		r, err := store.Rank(ctx, w.actor)
		if err != nil || r.Rank != i+1 {
			t.Fatalf("Rank(%s) = %+v, %v; want %d", w.actor, r, err, i+1)
		}
	}
}

func TestTreapStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				store.Set(ctx, fmt.Sprintf("u%d-%d", w, i), i)
				_, _ = store.TopN(ctx, 10)
				_, _ = store.Rank(ctx, fmt.Sprintf("u%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	if store.Count(ctx) != 1600 {
		t.Errorf("count = %d, want 1600", store.Count(ctx))
	}
}
