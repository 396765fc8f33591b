package vectorindex

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"document-qa/internal/models"
)

// Index is a flat (exhaustive) Euclidean-distance index over vectors of one dimension.
// A vector's position is the order in which it was passed to Build.
type Index struct {
	dim     int
	vectors [][]float32
}

// Result is a stored vector's position and its distance from the query.
type Result struct {
	Position int
	Distance float32
}

// Build indexes vectors in the given order. The dimension is taken from the first vector.
func Build(vectors [][]float32) (*Index, error) {
	idx := &Index{}
	if len(vectors) == 0 {
		return idx, nil
	}
	idx.dim = len(vectors[0])
	if idx.dim == 0 {
		return nil, fmt.Errorf("%w: vector 0 is empty", models.ErrDimensionMismatch)
	}
	idx.vectors = make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != idx.dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", models.ErrDimensionMismatch, i, len(v), idx.dim)
		}
		idx.vectors[i] = slices.Clone(v)
	}
	return idx, nil
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (idx *Index) Dimension() int { return idx.dim }

// Len returns the number of stored vectors.
func (idx *Index) Len() int { return len(idx.vectors) }

// Search returns the k stored vectors nearest to query in ascending distance order.
// Equal distances keep build order. If fewer than k vectors are stored, all of them are returned.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if len(idx.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", models.ErrDimensionMismatch, len(query), idx.dim)
	}

	results := make([]Result, len(idx.vectors))
	for i, v := range idx.vectors {
		results[i] = Result{Position: i, Distance: euclidean(query, v)}
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return results[:min(k, len(results))], nil
}

func euclidean(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}
