package archive

import (
	"context"
	"fmt"

	"github.com/okian/gisc/internal/adapters/eventstore"
	"github.com/okian/gisc/internal/domain/dedupe"
	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/pkg/logger"
	"github.com/okian/gisc/pkg/metrics"
)

// DefaultTypes are the event types the analysis needs.
var DefaultTypes = []model.EventType{model.PushEvent, model.WatchEvent, model.FollowEvent}

// Result summarises an import.
type Result struct {
	Stats
	Files      int `json:"files"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Ignored    int `json:"ignored"`
}

// Importer writes archive events into a store in batches, skipping ids it
// has already handed over.
type Importer struct {
	writer    eventstore.Writer
	deduper   dedupe.Deduper
	batchSize int
	types     map[model.EventType]bool // nil keeps every type
	logger    logger.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize sets how many events are appended per write.
func WithBatchSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithDeduper replaces the default unbounded deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(im *Importer) {
		if d != nil {
			im.deduper = d
		}
	}
}

// WithTypes restricts imported event types. No types keeps all of them.
func WithTypes(types ...model.EventType) Option {
	return func(im *Importer) {
		if len(types) == 0 {
			im.types = nil
			return
		}
		im.types = make(map[model.EventType]bool, len(types))
		for _, t := range types {
			im.types[t] = true
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

// NewImporter returns an importer writing to w.
func NewImporter(w eventstore.Writer, opts ...Option) *Importer {
	im := &Importer{writer: w, batchSize: 1000}
	WithTypes(DefaultTypes...)(im)
	for _, opt := range opts {
		opt(im)
	}
	if im.deduper == nil {
		im.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	}
	if im.logger == nil {
		im.logger = logger.Get().Named("import")
	}
	return im
}

// Import reads every path in order. It stops at the first unreadable file
// or store failure.
func (im *Importer) Import(ctx context.Context, paths ...string) (Result, error) {
	var res Result
	for _, path := range paths {
		fr, err := im.importFile(ctx, path)
		res.add(fr)
		if err != nil {
			return res, fmt.Errorf("import %s: %w", path, err)
		}
		res.Files++
		im.logger.Info(ctx, "archive imported",
			logger.String("file", path),
			logger.Int("events", fr.Events),
			logger.Int("inserted", fr.Inserted),
			logger.Int("malformed", fr.Malformed),
		)
	}
	return res, nil
}

func (r *Result) add(o Result) {
	r.Stats.Add(o.Stats)
	r.Inserted += o.Inserted
	r.Duplicates += o.Duplicates
	r.Ignored += o.Ignored
}

func (im *Importer) importFile(ctx context.Context, path string) (Result, error) {
	var res Result
	rc, err := Open(path)
	if err != nil {
		return res, err
	}
	defer rc.Close()

	batch := make([]model.Event, 0, im.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := im.writer.Append(ctx, batch...)
		if err != nil {
			for _, e := range batch {
				im.deduper.Unrecord(ctx, e.ID)
			}
			return err
		}
		res.Inserted += n
		res.Duplicates += len(batch) - n
		for i := n; i < len(batch); i++ {
			metrics.RecordEventDuplicate()
		}
		metrics.RecordEventsImported(n)
		batch = batch[:0]
		return nil
	}

	st, err := Decode(ctx, rc, func(e model.Event) error {
		if im.types != nil && !im.types[e.Type] {
			res.Ignored++
			return nil
		}
		if im.deduper.SeenAndRecord(ctx, e.ID) {
			res.Duplicates++
			metrics.RecordEventDuplicate()
			return nil
		}
		batch = append(batch, e)
		if len(batch) >= im.batchSize {
			return flush()
		}
		return nil
	})
	for i := 0; i < st.Malformed; i++ {
		metrics.RecordEventMalformed()
	}
	res.Stats = st
	if err != nil {
		return res, err
	}
	return res, flush()
}
