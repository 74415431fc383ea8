// Package predict fits least-squares polynomials to watcher history.
package predict

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/gisc/internal/domain/model"
	"gonum.org/v1/gonum/mat"
)

// Polynomial is a fitted curve in hours relative to Origin.
type Polynomial struct {
	Origin time.Time
	// Coeffs are ordered from the constant term upwards.
	Coeffs []float64
}

// Degree returns the polynomial degree.
func (p Polynomial) Degree() int { return len(p.Coeffs) - 1 }

// Eval returns the fitted count at t.
func (p Polynomial) Eval(t time.Time) float64 {
	x := hours(p.Origin, t)
	var y float64
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		y = y*x + p.Coeffs[i]
	}
	return y
}

// Predict evaluates p at every timestamp in c.
func (p Polynomial) Predict(c model.Curve) model.Curve {
	out := make(model.Curve, len(c))
	for i, s := range c {
		out[i] = model.Sample{At: s.At, Count: p.Eval(s.At)}
	}
	return out
}

// Fit returns the least-squares polynomial of the given degree through
// history. Only samples strictly before t0 are used; x is measured in
// hours from t0.
func Fit(history model.Curve, t0 time.Time, degree int) (Polynomial, error) {
	if degree < 0 {
		return Polynomial{}, fmt.Errorf("%w: %d", ErrInvalidDegree, degree)
	}

	xs := make([]float64, 0, len(history))
	ys := make([]float64, 0, len(history))
	for _, s := range history {
		if s.At.Before(t0) {
			xs = append(xs, hours(t0, s.At))
			ys = append(ys, s.Count)
		}
	}
	cols := degree + 1
	if len(xs) < cols {
		return Polynomial{}, fmt.Errorf("%w: have %d samples, need %d", ErrInsufficientHistory, len(xs), cols)
	}

	a := mat.NewDense(len(xs), cols, nil)
	for i, x := range xs {
		v := 1.0
		for j := 0; j < cols; j++ {
			a.Set(i, j, v)
			v *= x
		}
	}
	b := mat.NewVecDense(len(ys), ys)

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return Polynomial{}, fmt.Errorf("%w: %v", ErrIllConditioned, err)
		}
	}

	coeffs := make([]float64, cols)
	for j := range coeffs {
		coeffs[j] = coef.AtVec(j)
		if math.IsNaN(coeffs[j]) || math.IsInf(coeffs[j], 0) {
			return Polynomial{}, ErrIllConditioned
		}
	}
	return Polynomial{Origin: t0, Coeffs: coeffs}, nil
}

func hours(origin, t time.Time) float64 {
	return t.Sub(origin).Hours()
}
