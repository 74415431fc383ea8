package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/src-d/enry/v2"

	"github.com/okian/gisc/internal/adapters/eventstore"
	"github.com/okian/gisc/internal/domain/model"
)

// Extractor slices repository activity into impact windows.
type Extractor struct {
	store  eventstore.Reader
	window time.Duration
}

// NewExtractor returns an extractor producing windows of the given length.
func NewExtractor(store eventstore.Reader, window time.Duration) *Extractor {
	return &Extractor{store: store, window: window}
}

// Extract returns every event on the watched repository in
// [watch.At, watch.At+window).
func (x *Extractor) Extract(ctx context.Context, watch model.Event) (model.Window, error) {
	w := model.Window{
		Actor:     watch.Actor,
		Repo:      watch.Repo,
		Language:  watch.Language,
		TriggerID: watch.ID,
		Start:     watch.At,
		End:       watch.At.Add(x.window),
	}
	events, err := x.store.ListEvents(ctx, w.Repo, model.TimeRange{From: w.Start, To: w.End})
	if err != nil {
		return w, fmt.Errorf("extract window %s@%s: %w", w.Repo, w.Start.Format(time.RFC3339), err)
	}
	w.Events = events
	return w, nil
}

// Watches returns the actor's earliest watch of each repository, ordered by
// time. A non-empty language keeps only repositories in that language.
// Repeat watches open no window, and growth.Build does not count them as
// new watchers inside one.
func (x *Extractor) Watches(ctx context.Context, actor, language string) ([]model.Event, error) {
	events, err := x.store.ListWatchEvents(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("list watches of %s: %w", actor, err)
	}
	model.SortEvents(events)

	seen := make(map[string]struct{}, len(events))
	out := events[:0:0]
	for _, e := range events {
		if language != "" && !strings.EqualFold(e.Language, language) {
			continue
		}
		if _, ok := seen[e.Repo]; ok {
			continue
		}
		seen[e.Repo] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}

// ResolveLanguage maps a user-supplied language name or alias ("golang",
// "js") to the spelling stored with the events. An empty name disables
// filtering.
func ResolveLanguage(ctx context.Context, store eventstore.Reader, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	known, err := store.Languages(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve language: %w", err)
	}

	candidates := []string{name}
	if canonical, ok := enry.GetLanguageByAlias(name); ok {
		candidates = append(candidates, canonical)
	}
	for _, c := range candidates {
		for _, l := range known {
			if strings.EqualFold(l, c) {
				return l, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
}
