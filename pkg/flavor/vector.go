// Package flavor provides the six-axis taste vector and similarity math used across larder.
package flavor

import (
	"fmt"
	"math"
)

// Axes is the fixed number of taste axes.
const Axes = 6

// AxisNames lists the taste axes in canonical order. Every recipe vector
// and every user profile must use this ordering, or cosine similarity
// between them is meaningless.
var AxisNames = [Axes]string{"sweet", "salty", "sour", "bitter", "umami", "spicy"}

// Vector is a fixed-length tuple of taste intensities, one per axis in
// canonical order, each in [0,1]. The zero value is a valid (all-zero)
// vector; use Neutral for the no-information default.
type Vector [Axes]float64

// Neutral returns the neutral taste vector (0.5 on every axis), used when
// a recipe or user has no learned flavor data.
func Neutral() Vector {
	return Vector{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
}

// FromSlice converts a raw float slice into a Vector.
// The slice must have exactly Axes elements.
func FromSlice(values []float64) (Vector, error) {
	var v Vector
	if len(values) != Axes {
		return v, fmt.Errorf("flavor vector must have %d axes, got %d", Axes, len(values))
	}
	copy(v[:], values)
	return v, nil
}

// FromFloat32 converts a float32 slice (the pgvector wire form) into a Vector.
func FromFloat32(values []float32) (Vector, error) {
	var v Vector
	if len(values) != Axes {
		return v, fmt.Errorf("flavor vector must have %d axes, got %d", Axes, len(values))
	}
	for i, x := range values {
		v[i] = float64(x)
	}
	return v, nil
}

// Slice returns the vector as a fresh float slice in axis order.
func (v Vector) Slice() []float64 {
	out := make([]float64, Axes)
	copy(out, v[:])
	return out
}

// Float32 returns the vector as a float32 slice for vector-column storage.
func (v Vector) Float32() []float32 {
	out := make([]float32, Axes)
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// IsZero reports whether every axis is exactly zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Norm returns the Euclidean norm of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Validate checks that every axis intensity is within [0,1].
func (v Vector) Validate() error {
	for i, x := range v {
		if math.IsNaN(x) || x < 0 || x > 1 {
			return fmt.Errorf("axis %s: intensity %v out of range [0,1]", AxisNames[i], x)
		}
	}
	return nil
}

// Dot returns the dot product of two vectors.
func Dot(a, b Vector) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Cosine returns the cosine similarity between two taste vectors.
// Returns 0.5 (neutral) when either vector has zero norm, so callers
// never see NaN from an unlearned or missing vector.
func Cosine(a, b Vector) float64 {
	na := a.Norm()
	nb := b.Norm()
	if na == 0 || nb == 0 {
		return 0.5
	}
	return Dot(a, b) / (na * nb)
}
