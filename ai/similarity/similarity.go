// Package similarity provides the pure numeric routines behind semantic
// matching: cosine similarity, normalization, and threshold ranking.
// No I/O, deterministic, safe for concurrent use.
package similarity

import (
	"errors"
	"math"
	"sort"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrDimensionMismatch means two vectors of different lengths were
	// compared. Indicates mixed embedding models or corrupted data; never
	// masked.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrDegenerateVector means a zero-magnitude vector whose direction is
	// undefined. Callers must treat this as "no signal", never as score 0.
	ErrDegenerateVector = errors.New("degenerate zero vector")

	// ErrInvalidArgument means a bad ranking parameter such as topK < 1.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Candidate is an identified vector submitted for ranking.
type Candidate struct {
	ID     string
	Vector []float32
}

// Ranked is a ranking result: candidate id plus its similarity to the query.
type Ranked struct {
	ID    string
	Score float32
}

// Cosine returns the cosine similarity between a and b, in [-1, 1].
func Cosine(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, pkgerrors.Wrapf(ErrDimensionMismatch, "got %d and %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, ErrDegenerateVector
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// Normalize returns v scaled to unit length.
func Normalize(v []float32) ([]float32, error) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return nil, ErrDegenerateVector
	}

	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// Rank scores every candidate against the query, drops scores at or below
// minScore (exclusive lower bound), sorts descending with ties keeping input
// order, and truncates to topK. Dimension or degenerate-vector errors on any
// candidate abort the whole ranking; they indicate corrupted embeddings.
func Rank(candidates []Candidate, query []float32, topK int, minScore float32) ([]Ranked, error) {
	if topK < 1 {
		return nil, pkgerrors.Wrapf(ErrInvalidArgument, "topK must be >= 1, got %d", topK)
	}

	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		score, err := Cosine(c.Vector, query)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "candidate %s", c.ID)
		}
		if score > minScore {
			ranked = append(ranked, Ranked{ID: c.ID, Score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}
