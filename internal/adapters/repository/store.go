// Package repository ranks actors by follower count.
package repository

import (
	"context"

	"github.com/okian/gisc/internal/domain/model"
)

// Leaderboard provides read/write access to the follower ranking.
type Leaderboard interface {
	// Set records actor's follower count, replacing any previous value.
	Set(ctx context.Context, actor string, followers int)
	// Replace atomically swaps the whole ranking for counts.
	Replace(ctx context.Context, counts map[string]int)
	// Rank returns the actor's 1-based position and follower count.
	// Returns ErrNotFound if the actor is unknown.
	Rank(ctx context.Context, actor string) (model.ActorRank, error)
	// TopN returns the first n actors, followers DESC then login ASC.
	TopN(ctx context.Context, n int) ([]model.ActorRank, error)
	// Count returns the number of ranked actors.
	Count(ctx context.Context) int
}
