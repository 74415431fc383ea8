package app

import (
	"context"
	"fmt"

	"github.com/okian/gisc/internal/adapters/eventstore"
	"github.com/okian/gisc/internal/adapters/repository"
	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/pkg/metrics"
)

// Selector picks the most-followed actors.
type Selector struct {
	store eventstore.Reader
	board repository.Leaderboard
}

// NewSelector returns a selector that materialises follower counts into board.
func NewSelector(store eventstore.Reader, board repository.Leaderboard) *Selector {
	return &Selector{store: store, board: board}
}

// Select returns the k actors with the most distinct followers as of the
// latest event in the store, ties broken by login. k <= 0 returns every
// followed actor; fewer than k actors is not an error.
func (s *Selector) Select(ctx context.Context, k int) ([]model.ActorRank, error) {
	now, err := s.store.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("select influencers: %w", err)
	}
	counts, err := s.store.FollowerCounts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("select influencers: %w", err)
	}
	if len(counts) == 0 {
		return nil, ErrInsufficientData
	}

	s.board.Replace(ctx, counts)
	metrics.UpdateInfluencers(len(counts))

	if k <= 0 || k > len(counts) {
		k = len(counts)
	}
	return s.board.TopN(ctx, k)
}
