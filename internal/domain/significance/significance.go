// Package significance decides whether observed growth departs from the
// predicted baseline.
package significance

import (
	"fmt"
	"math"

	"github.com/okian/gisc/internal/domain/model"
)

// Strategy names.
const (
	MaxAbs   = "max_abs"
	Relative = "relative"
	Net      = "net"
)

// Result is the outcome of a deviation test.
type Result struct {
	// MaxDeviation is max |observed - predicted| over the samples.
	MaxDeviation float64
	// Score is the statistic compared against the threshold.
	Score    float64
	Eligible bool
}

// Test is a pluggable deviation test.
type Test interface {
	Name() string
	Evaluate(observed, predicted model.Curve, baseline int) (Result, error)
}

// New returns the named test with the given threshold.
func New(name string, threshold float64) (Test, error) {
	switch name {
	case MaxAbs, "":
		return maxAbs{threshold: threshold}, nil
	case Relative:
		return relative{threshold: threshold}, nil
	case Net:
		return netSum{threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// MaxDeviation returns the largest absolute difference between paired samples.
func MaxDeviation(observed, predicted model.Curve) (float64, error) {
	if err := check(observed, predicted); err != nil {
		return 0, err
	}
	var dev float64
	for i := range observed {
		dev = math.Max(dev, math.Abs(observed[i].Count-predicted[i].Count))
	}
	return dev, nil
}

func check(observed, predicted model.Curve) error {
	if len(observed) != len(predicted) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(observed), len(predicted))
	}
	if len(observed) == 0 {
		return ErrNoSamples
	}
	return nil
}

// maxAbs flags windows whose largest gap exceeds an absolute watcher count.
type maxAbs struct{ threshold float64 }

func (maxAbs) Name() string { return MaxAbs }

func (t maxAbs) Evaluate(observed, predicted model.Curve, _ int) (Result, error) {
	dev, err := MaxDeviation(observed, predicted)
	if err != nil {
		return Result{}, err
	}
	return Result{MaxDeviation: dev, Score: dev, Eligible: dev > t.threshold}, nil
}

// relative scales the largest gap by the pre-window watcher count.
type relative struct{ threshold float64 }

func (relative) Name() string { return Relative }

func (t relative) Evaluate(observed, predicted model.Curve, baseline int) (Result, error) {
	dev, err := MaxDeviation(observed, predicted)
	if err != nil {
		return Result{}, err
	}
	score := dev / math.Max(float64(baseline), 1)
	return Result{MaxDeviation: dev, Score: score, Eligible: score > t.threshold}, nil
}

// netSum compares the signed residual sum, so over- and under-shoot cancel.
type netSum struct{ threshold float64 }

func (netSum) Name() string { return Net }

func (t netSum) Evaluate(observed, predicted model.Curve, _ int) (Result, error) {
	dev, err := MaxDeviation(observed, predicted)
	if err != nil {
		return Result{}, err
	}
	var sum float64
	for i := range observed {
		sum += observed[i].Count - predicted[i].Count
	}
	score := math.Abs(sum)
	return Result{MaxDeviation: dev, Score: score, Eligible: score > t.threshold}, nil
}
