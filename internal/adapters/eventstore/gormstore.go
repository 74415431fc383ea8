package eventstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/pkg/metrics"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const defaultBatchSize = 500

// eventRow is the persisted form of model.Event. Timestamps are stored as
// UTC unix nanoseconds so range predicates compare integers.
type eventRow struct {
	Seq      int64  `gorm:"primaryKey;autoIncrement"`
	EventID  string `gorm:"column:event_id;uniqueIndex;not null"`
	Type     string `gorm:"index:idx_repo_type_at,priority:2;index:idx_actor_type_at,priority:2;index:idx_type_target,priority:1"`
	Actor    string `gorm:"index:idx_actor_type_at,priority:1"`
	Repo     string `gorm:"index:idx_repo_type_at,priority:1"`
	Language string
	Target   string `gorm:"index:idx_type_target,priority:2"`
	At       int64  `gorm:"index:idx_repo_type_at,priority:3;index:idx_actor_type_at,priority:3"`
	Payload  []byte
}

func (eventRow) TableName() string { return "events" }

func toRow(e model.Event) eventRow {
	return eventRow{
		EventID:  e.ID,
		Type:     string(e.Type),
		Actor:    e.Actor,
		Repo:     e.Repo,
		Language: e.Language,
		Target:   e.Target,
		At:       e.At.UTC().UnixNano(),
		Payload:  e.Payload,
	}
}

func (r eventRow) event() model.Event {
	return model.Event{
		ID:       r.EventID,
		Type:     model.EventType(r.Type),
		Actor:    r.Actor,
		Repo:     r.Repo,
		Language: r.Language,
		Target:   r.Target,
		At:       time.Unix(0, r.At).UTC(),
		Seq:      r.Seq,
		Payload:  r.Payload,
	}
}

// GormStore is a Store backed by SQLite through gorm.
type GormStore struct {
	db        *gorm.DB
	batchSize int
}

var _ Store = (*GormStore)(nil)

// GormOption configures a GormStore.
type GormOption func(*GormStore)

// WithBatchSize sets the number of rows per INSERT.
func WithBatchSize(n int) GormOption {
	return func(s *GormStore) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// OpenSQLite opens (creating if needed) the SQLite database at dsn and
// migrates the events table.
func OpenSQLite(dsn string, opts ...GormOption) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStore, dsn, err)
	}
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		// every pooled connection would otherwise see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return NewGormStore(db, opts...)
}

// NewGormStore wraps an open gorm handle and migrates the schema.
func NewGormStore(db *gorm.DB, opts ...GormOption) (*GormStore, error) {
	s := &GormStore{db: db, batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(s)
	}
	if err := db.AutoMigrate(&eventRow{}); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", ErrStore, err)
	}
	return s, nil
}

func observe(query string, start time.Time) {
	metrics.RecordStoreQueryLatency(query, float64(time.Since(start).Microseconds())/1000)
}

func wrap(op string, err error) error {
	metrics.RecordErrorByComponent("eventstore", op)
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}

// Append inserts events, skipping IDs already present.
func (s *GormStore) Append(ctx context.Context, events ...model.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	defer observe("append", time.Now())

	rows := make([]eventRow, len(events))
	for i, e := range events {
		rows[i] = toRow(e)
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		CreateInBatches(&rows, s.batchSize)
	if res.Error != nil {
		return 0, wrap("append", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *GormStore) find(ctx context.Context, query string, where string, args ...any) ([]model.Event, error) {
	defer observe(query, time.Now())

	var rows []eventRow
	err := s.db.WithContext(ctx).Where(where, args...).Order("at, seq").Find(&rows).Error
	if err != nil {
		return nil, wrap(query, err)
	}
	out := make([]model.Event, len(rows))
	for i, r := range rows {
		out[i] = r.event()
	}
	return out, nil
}

func (s *GormStore) ListEvents(ctx context.Context, repo string, r model.TimeRange) ([]model.Event, error) {
	return s.find(ctx, "list_events", "repo = ? AND at >= ? AND at < ?",
		repo, r.From.UTC().UnixNano(), r.To.UTC().UnixNano())
}

func (s *GormStore) ListWatchEvents(ctx context.Context, actor string) ([]model.Event, error) {
	return s.find(ctx, "list_watch_events", "actor = ? AND type = ?", actor, string(model.WatchEvent))
}

func (s *GormStore) ListRepoWatches(ctx context.Context, repo string, before time.Time) ([]model.Event, error) {
	return s.find(ctx, "list_repo_watches", "repo = ? AND type = ? AND at < ?",
		repo, string(model.WatchEvent), before.UTC().UnixNano())
}

func (s *GormStore) CountFollowers(ctx context.Context, actor string, asOf time.Time) (int, error) {
	defer observe("count_followers", time.Now())

	var n int64
	err := s.db.WithContext(ctx).Model(&eventRow{}).
		Where("type = ? AND target = ? AND at <= ?", string(model.FollowEvent), actor, asOf.UTC().UnixNano()).
		Distinct("actor").
		Count(&n).Error
	if err != nil {
		return 0, wrap("count_followers", err)
	}
	return int(n), nil
}

func (s *GormStore) CountWatchers(ctx context.Context, repo string, asOf time.Time) (int, error) {
	defer observe("count_watchers", time.Now())

	var n int64
	err := s.db.WithContext(ctx).Model(&eventRow{}).
		Where("repo = ? AND type = ? AND at < ?", repo, string(model.WatchEvent), asOf.UTC().UnixNano()).
		Count(&n).Error
	if err != nil {
		return 0, wrap("count_watchers", err)
	}
	return int(n), nil
}

func (s *GormStore) FollowerCounts(ctx context.Context, asOf time.Time) (map[string]int, error) {
	defer observe("follower_counts", time.Now())

	var rows []struct {
		Target    string
		Followers int
	}
	err := s.db.WithContext(ctx).Model(&eventRow{}).
		Select("target, COUNT(DISTINCT actor) AS followers").
		Where("type = ? AND target <> '' AND at <= ?", string(model.FollowEvent), asOf.UTC().UnixNano()).
		Group("target").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap("follower_counts", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Target] = r.Followers
	}
	return out, nil
}

func (s *GormStore) Latest(ctx context.Context) (time.Time, error) {
	defer observe("latest", time.Now())

	var rows []eventRow
	err := s.db.WithContext(ctx).Select("at").Order("at DESC").Limit(1).Find(&rows).Error
	if err != nil {
		return time.Time{}, wrap("latest", err)
	}
	if len(rows) == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, rows[0].At).UTC(), nil
}

func (s *GormStore) Languages(ctx context.Context) ([]string, error) {
	defer observe("languages", time.Now())

	var langs []string
	err := s.db.WithContext(ctx).Model(&eventRow{}).
		Where("language <> ''").
		Distinct().
		Order("language").
		Pluck("language", &langs).Error
	if err != nil {
		return nil, wrap("languages", err)
	}
	return langs, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
