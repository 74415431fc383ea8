// Package archive reads GitHub archive hourly dumps and imports them into
// an event store.
//
// Two record layouts are understood. The 2012 timeline layout carries the
// actor as a plain login and the repository as an object with owner, name
// and language. The 2015+ layout carries actor.login and repo.name and has
// no language. Both put the followed login of a FollowEvent at
// payload.target.login.
package archive

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gisc/internal/domain/model"
)

// maxLine bounds a single archive line; some push payloads are large.
const maxLine = 16 << 20

// idSpace namespaces content-derived ids for records without one.
var idSpace = uuid.MustParse("8e0f5a52-6f1e-4bd4-9a33-1b5b0c7a0d31")

// Stats counts what a decode pass saw.
type Stats struct {
	Lines     int `json:"lines"`
	Events    int `json:"events"`
	Malformed int `json:"malformed"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Lines += o.Lines
	s.Events += o.Events
	s.Malformed += o.Malformed
}

// Open opens an archive file, transparently un-gzipping .json.gz.
func Open(path string) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, path, err)
		}
		return &gzipFile{Reader: zr, f: f}, nil
	case strings.HasSuffix(path, ".json"):
		return os.Open(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.f.Close())
}

// Decode streams the records in r to fn. A line may hold several
// concatenated objects. Lines that fail to parse are counted and skipped;
// an error from fn stops decoding and is returned.
func Decode(ctx context.Context, r io.Reader, fn func(model.Event) error) (Stats, error) {
	var st Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		st.Lines++

		events, err := decodeLine(line)
		if err != nil {
			st.Malformed++
			continue
		}
		for _, e := range events {
			st.Events++
			if err := fn(e); err != nil {
				return st, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return st, nil
}

func decodeLine(line []byte) ([]model.Event, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	var out []model.Event
	for {
		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		e, err := parse(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

type record struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	CreatedAt  string          `json:"created_at"`
	Actor      json.RawMessage `json:"actor"`
	Repository *struct {
		Owner    string `json:"owner"`
		Name     string `json:"name"`
		URL      string `json:"url"`
		Language string `json:"language"`
	} `json:"repository"`
	Repo *struct {
		Name string `json:"name"`
	} `json:"repo"`
	Payload json.RawMessage `json:"payload"`
}

type target struct {
	Target *struct {
		Login string `json:"login"`
	} `json:"target"`
}

func parse(raw []byte) (model.Event, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.Event{}, err
	}
	if rec.Type == "" {
		return model.Event{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	at, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: created_at %q", ErrMalformed, rec.CreatedAt)
	}

	e := model.Event{
		ID:      rec.ID,
		Type:    model.EventType(rec.Type),
		Actor:   actorLogin(rec.Actor),
		At:      at.UTC(),
		Payload: []byte(rec.Payload),
	}
	switch {
	case rec.Repo != nil && rec.Repo.Name != "":
		e.Repo = rec.Repo.Name
	case rec.Repository != nil:
		e.Repo = repoName(rec.Repository.Owner, rec.Repository.Name, rec.Repository.URL)
		e.Language = rec.Repository.Language
	}
	if e.Type == model.FollowEvent && len(rec.Payload) > 0 {
		var p target
		if err := json.Unmarshal(rec.Payload, &p); err == nil && p.Target != nil {
			e.Target = p.Target.Login
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewSHA1(idSpace, raw).String()
	}
	return e, nil
}

// actorLogin accepts both "login" and {"login": "..."}.
func actorLogin(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var o struct {
		Login string `json:"login"`
	}
	if json.Unmarshal(raw, &o) == nil {
		return o.Login
	}
	return ""
}

func repoName(owner, name, url string) string {
	if owner != "" && name != "" {
		return owner + "/" + name
	}
	for _, prefix := range []string{"https://github.com/", "http://github.com/"} {
		if strings.HasPrefix(url, prefix) {
			return strings.TrimSuffix(strings.TrimPrefix(url, prefix), "/")
		}
	}
	return name
}
