// Package genuineness scores how consistent an actor's influence is across
// the repositories they watched.
//
// An actor whose watch reliably precedes similar growth spikes has a low
// dispersion of per-window deltas; widely scattered deltas suggest the
// spikes are coincidental.
package genuineness

import (
	"fmt"

	"github.com/okian/gisc/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Strategy names.
const (
	Dispersion = "dispersion"
	Weighted   = "weighted"
)

// Input is the per-actor data a Validator consumes.
type Input struct {
	Actor     string
	Followers int
	// Deltas are watcher-count gains over each of the actor's windows.
	Deltas []float64
}

// Validator is a pluggable genuineness check.
type Validator interface {
	Name() string
	Validate(in Input) model.Genuineness
}

// Option configures a Validator.
type Option func(*settings)

type settings struct {
	maxStdDev float64
	minDelta  float64
}

// WithMaxStdDev sets the largest dispersion still considered genuine.
func WithMaxStdDev(v float64) Option {
	return func(s *settings) { s.maxStdDev = v }
}

// WithMinDelta sets the smallest delta kept by the weighted strategy.
func WithMinDelta(v float64) Option {
	return func(s *settings) { s.minDelta = v }
}

// New returns the named validator.
func New(name string, opts ...Option) (Validator, error) {
	s := settings{maxStdDev: 5, minDelta: 50}
	for _, opt := range opts {
		opt(&s)
	}
	switch name {
	case Dispersion, "":
		return dispersion{settings: s}, nil
	case Weighted:
		return weighted{settings: s}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// score applies the dispersion rule to already-prepared deltas. Fewer than
// two deltas carry no dispersion evidence and are never genuine.
func score(actor, strategy string, deltas []float64, maxStdDev float64) model.Genuineness {
	g := model.Genuineness{Actor: actor, Strategy: strategy, Deltas: deltas}
	if len(deltas) < 2 {
		return g
	}
	g.Sufficient = true
	g.StdDev = stat.PopStdDev(deltas, nil)
	g.Genuine = g.StdDev <= maxStdDev
	return g
}

type dispersion struct{ settings }

func (dispersion) Name() string { return Dispersion }

func (v dispersion) Validate(in Input) model.Genuineness {
	deltas := append([]float64(nil), in.Deltas...)
	return score(in.Actor, Dispersion, deltas, v.maxStdDev)
}

// weighted keeps only large gains and scales them by the actor's reach.
type weighted struct{ settings }

func (weighted) Name() string { return Weighted }

func (v weighted) Validate(in Input) model.Genuineness {
	var deltas []float64
	for _, d := range in.Deltas {
		if d > v.minDelta {
			deltas = append(deltas, d*float64(in.Followers))
		}
	}
	return score(in.Actor, Weighted, deltas, v.maxStdDev)
}
