// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"strings"
	"time"
)

// EventType names a GitHub activity kind.
type EventType string

// Event types the analysis reads. Others are stored and ignored.
const (
	WatchEvent  EventType = "WatchEvent"
	FollowEvent EventType = "FollowEvent"
	PushEvent   EventType = "PushEvent"
	CreateEvent EventType = "CreateEvent"
	ForkEvent   EventType = "ForkEvent"
)

// Event is an immutable activity record.
type Event struct {
	ID       string    // unique id for idempotent import
	Type     EventType // activity kind
	Actor    string    // login of the acting user
	Repo     string    // owner/name, empty for follow events
	Language string    // repository language, may be empty
	Target   string    // followed login for FollowEvent
	At       time.Time // event timestamp, UTC
	Seq      int64     // store insertion order; tie-break for equal At
	Payload  []byte    // opaque source record
}

// IsWatch reports whether e is a watch (star) event.
func (e Event) IsWatch() bool { return e.Type == WatchEvent }

// Before orders events by timestamp, then insertion sequence.
func (e Event) Before(o Event) bool {
	if !e.At.Equal(o.At) {
		return e.At.Before(o.At)
	}
	return e.Seq < o.Seq
}

// SortEvents sorts events in place by (At, Seq).
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Before(events[j]) })
}

// TimeRange is a half-open interval [From, To).
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies in [From, To).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// RepoURL returns the public URL of an owner/name repository.
func RepoURL(repo string) string {
	return "https://github.com/" + strings.TrimPrefix(repo, "/")
}

// ActorRank is an actor's position in the follower leaderboard.
type ActorRank struct {
	Rank      int    `json:"rank"`
	Actor     string `json:"actor"`
	Followers int    `json:"followers"`
}
