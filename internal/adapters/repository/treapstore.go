package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/pkg/metrics"
)

// Treap-based, in-memory Leaderboard.
//
// Ordering: followers DESC, then actor ASC. "less" means ranks earlier, so
// an in-order traversal yields the leaderboard from first to last. Subtree
// sizes make Rank and TopN O(log n + k).

type node struct {
	actor     string
	followers int
	prio      uint64
	left      *node
	right     *node
	size      int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aFollowers int, aActor string, bFollowers int, bActor string) bool {
	if aFollowers != bFollowers {
		return aFollowers > bFollowers
	}
	return aActor < bActor
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, nn *node) *node {
	if n == nil {
		return nn
	}
	if less(nn.followers, nn.actor, n.followers, n.actor) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, actor string, followers int) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.actor == actor:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, actor, followers)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, actor, followers)
		}
	case less(followers, actor, n.followers, n.actor):
		n.left = deleteNode(n.left, actor, followers)
	default:
		n.right = deleteNode(n.right, actor, followers)
	}
	fix(n)
	return n
}

// position returns the 1-based in-order index of (actor, followers).
func position(n *node, actor string, followers int) int {
	pos := 0
	for n != nil {
		switch {
		case n.actor == actor:
			return pos + nsize(n.left) + 1
		case less(followers, actor, n.followers, n.actor):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

func collectTopN(n *node, limit int, out *[]model.ActorRank) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, model.ActorRank{Rank: len(*out) + 1, Actor: n.actor, Followers: n.followers})
	}
	collectTopN(n.right, limit, out)
}

// TreapStore implements Leaderboard.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]int
	seed uint64
}

var _ Leaderboard = (*TreapStore)(nil)

// NewTreapStore constructs an empty leaderboard.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{byID: make(map[string]int)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TreapStore) newNode(actor string, followers int) *node {
	h := fnv.New64a()
	_, _ = h.Write([]byte(actor))
	return &node{actor: actor, followers: followers, prio: h.Sum64() ^ s.seed, size: 1}
}

// Set implements Leaderboard.Set in O(log n) expected time.
func (s *TreapStore) Set(_ context.Context, actor string, followers int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[actor]; ok {
		if old == followers {
			return
		}
		s.root = deleteNode(s.root, actor, old)
	}
	s.byID[actor] = followers
	s.root = insert(s.root, s.newNode(actor, followers))
}

// Replace builds a new treap from counts and swaps it in.
func (s *TreapStore) Replace(_ context.Context, counts map[string]int) {
	var root *node
	byID := make(map[string]int, len(counts))
	for actor, followers := range counts {
		byID[actor] = followers
		root = insert(root, s.newNode(actor, followers))
	}

	s.mu.Lock()
	s.root, s.byID = root, byID
	s.mu.Unlock()
}

// Rank returns the actor's position in O(log n) expected time.
func (s *TreapStore) Rank(_ context.Context, actor string) (model.ActorRank, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency("leaderboard_rank", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	followers, ok := s.byID[actor]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.ActorRank{}, ErrNotFound
	}
	return model.ActorRank{
		Rank:      position(s.root, actor, followers),
		Actor:     actor,
		Followers: followers,
	}, nil
}

// TopN returns the first n actors in rank order.
func (s *TreapStore) TopN(_ context.Context, n int) ([]model.ActorRank, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ActorRank, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &out)
	return out, nil
}

// Count returns the number of ranked actors.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
