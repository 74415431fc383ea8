// Package eventstore provides the query surface the analysis reads from and
// the append surface the archive importer writes to.
package eventstore

import (
	"context"
	"time"

	"github.com/okian/gisc/internal/domain/model"
)

// Reader is the narrow query interface used by the analysis.
// All returned events are ordered by (At, Seq). Times are UTC.
type Reader interface {
	// ListEvents returns events on repo within r.
	ListEvents(ctx context.Context, repo string, r model.TimeRange) ([]model.Event, error)
	// ListWatchEvents returns every watch event performed by actor.
	ListWatchEvents(ctx context.Context, actor string) ([]model.Event, error)
	// ListRepoWatches returns watch events on repo strictly before before.
	ListRepoWatches(ctx context.Context, repo string, before time.Time) ([]model.Event, error)
	// CountFollowers counts distinct actors following actor at or before asOf.
	CountFollowers(ctx context.Context, actor string, asOf time.Time) (int, error)
	// CountWatchers counts watch events on repo strictly before asOf.
	CountWatchers(ctx context.Context, repo string, asOf time.Time) (int, error)
	// FollowerCounts returns follower counts, at or before asOf, for every
	// followed actor.
	FollowerCounts(ctx context.Context, asOf time.Time) (map[string]int, error)
	// Latest returns the newest event timestamp, zero for an empty store.
	Latest(ctx context.Context) (time.Time, error)
	// Languages returns the distinct non-empty repository languages.
	Languages(ctx context.Context) ([]string, error)
}

// Writer appends events. Events whose ID is already stored are skipped.
type Writer interface {
	Append(ctx context.Context, events ...model.Event) (int, error)
}

// Store is a readable and writable event store.
type Store interface {
	Reader
	Writer
	Close() error
}
