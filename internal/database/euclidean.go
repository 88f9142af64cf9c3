package database

import (
	"fmt"
	"math"
)

// EuclideanDistance computes the L2 distance between two embeddings.
// Vectors of different (or zero) length are infinitely far apart.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CheckDimension returns ErrDimensionMismatch unless len(embedding) == dim.
// A non-positive dim accepts any non-empty embedding.
func CheckDimension(embedding []float32, dim int) error {
	if len(embedding) == 0 {
		return ErrDimensionMismatch
	}
	if dim > 0 && len(embedding) != dim {
		return ErrDimensionMismatch
	}
	return nil
}

// CheckEmbedding is CheckDimension plus a check that every component is finite.
// Non-finite components make every distance NaN, which no tolerance can judge.
func CheckEmbedding(embedding []float32, dim int) error {
	if err := CheckDimension(embedding, dim); err != nil {
		return err
	}
	for i, v := range embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrInvalidEmbedding, i, v)
		}
	}
	return nil
}
