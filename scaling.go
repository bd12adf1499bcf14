package schedbench

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooFewPoints is returned when a scaling fit has fewer than three points.
var ErrTooFewPoints = errors.New("need at least 3 points to fit scaling")

// Scaling holds Universal Scalability Law coefficients fitted to a result
// set whose rows are throughput at increasing concurrency:
//
//	C(N) = λN / (1 + α(N-1) + βN(N-1))
//
// α is contention and β is coherency cost. For the smp sets N is the
// number of cores with an active ping-pong pair.
type Scaling struct {
	Lambda   float64 // Throughput at N=1
	Alpha    float64 // Contention coefficient
	Beta     float64 // Coherency coefficient
	RSquared float64 // Goodness of fit (1.0 = perfect)
}

type scalingPoint struct {
	n, c float64
}

// FitScaling fits the mean of each row against the concurrency in column.
//
// The model is linearised as N/C(N) = 1/λ + (α/λ)(N-1) + (β/λ)N(N-1) and
// solved by least squares. A negative β is a fitting artifact of noise and
// falls back to the contention-only model.
func FitScaling(set ResultSet, column string) (Scaling, error) {
	var ns []int64
	for _, c := range set.Columns {
		if c.Header == column {
			ns = c.Values
		}
	}
	if ns == nil {
		return Scaling{}, fmt.Errorf("%s: no column %q: %w", set.Name, column, ErrColumnHeader)
	}
	if len(ns) != len(set.Results) {
		return Scaling{}, fmt.Errorf("%s: %w", set.Name, ErrColumnLength)
	}

	points := make([]scalingPoint, 0, len(ns))
	for i, n := range ns {
		if n <= 0 || set.Results[i].Mean <= 0 {
			continue
		}
		points = append(points, scalingPoint{float64(n), set.Results[i].Mean})
	}
	if len(points) < 3 {
		return Scaling{}, fmt.Errorf("%s: %d usable points: %w", set.Name, len(points), ErrTooFewPoints)
	}

	// Normal equations for Y = b0 + b1*X1 + b2*X2.
	var m [3][3]float64
	var v [3]float64
	for _, p := range points {
		x := [3]float64{1, p.n - 1, p.n * (p.n - 1)}
		y := p.n / p.c
		for i := range x {
			for j := range x {
				m[i][j] += x[i] * x[j]
			}
			v[i] += y * x[i]
		}
	}

	s := Scaling{}
	b, ok := solve3(m, v)
	if ok && b[0] > 0 {
		s.Lambda, s.Alpha, s.Beta = 1/b[0], b[1]/b[0], b[2]/b[0]
	}
	if !ok || b[0] <= 0 || (s.Beta < 0 && s.Alpha > 0) {
		// Contention-only model: Y = b0 + b1*X1.
		det := m[0][0]*m[1][1] - m[0][1]*m[0][1]
		if math.Abs(det) < 1e-12 {
			return Scaling{}, fmt.Errorf("%s: singular fit: %w", set.Name, ErrTooFewPoints)
		}
		b0 := (m[1][1]*v[0] - m[0][1]*v[1]) / det
		b1 := (m[0][0]*v[1] - m[0][1]*v[0]) / det
		if b0 <= 0 {
			return Scaling{}, fmt.Errorf("%s: non-positive serial throughput: %w", set.Name, ErrTooFewPoints)
		}
		s.Lambda, s.Alpha, s.Beta = 1/b0, b1/b0, 0
	}

	var mean float64
	for _, p := range points {
		mean += p.c
	}
	mean /= float64(len(points))

	var ssRes, ssTot float64
	for _, p := range points {
		d := p.c - s.predict(p.n)
		ssRes += d * d
		ssTot += (p.c - mean) * (p.c - mean)
	}
	if ssTot > 0 {
		s.RSquared = 1 - ssRes/ssTot
	} else {
		s.RSquared = 1
	}
	return s, nil
}

// solve3 solves m·b = v with Cramer's rule.
func solve3(m [3][3]float64, v [3]float64) ([3]float64, bool) {
	det := det3(m)
	if math.Abs(det) < 1e-12 {
		return [3]float64{}, false
	}
	var b [3]float64
	for col := 0; col < 3; col++ {
		mc := m
		for row := 0; row < 3; row++ {
			mc[row][col] = v[row]
		}
		b[col] = det3(mc) / det
	}
	return b, true
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

func (s Scaling) predict(n float64) float64 {
	return s.Lambda * n / (1 + s.Alpha*(n-1) + s.Beta*n*(n-1))
}

// Predict estimates throughput at n.
func (s Scaling) Predict(n int) float64 {
	if n <= 0 {
		return 0
	}
	return s.predict(float64(n))
}

// Efficiency is predicted over ideal linear throughput at n.
func (s Scaling) Efficiency(n int) float64 {
	ideal := s.Lambda * float64(n)
	if ideal == 0 {
		return 0
	}
	return s.Predict(n) / ideal
}

// Peak returns the concurrency of maximum throughput, sqrt((1-α)/β).
// Without a coherency cost there is no peak and it returns +Inf.
func (s Scaling) Peak() float64 {
	if s.Beta <= 0 {
		return math.Inf(1)
	}
	if s.Alpha >= 1 {
		return 0
	}
	return math.Sqrt((1 - s.Alpha) / s.Beta)
}

// Retrograde reports whether adding work beyond n lowers throughput.
func (s Scaling) Retrograde(n int) bool {
	return float64(n) >= s.Peak()
}

func (s Scaling) String() string {
	return fmt.Sprintf("λ=%.4g α=%.4f β=%.6f R²=%.3f peak=%.1f", s.Lambda, s.Alpha, s.Beta, s.RSquared, s.Peak())
}
