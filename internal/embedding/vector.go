package embedding

import (
	"gonum.org/v1/gonum/floats"
)

// PoolingVersion is folded into every chunk cache key so a change to the
// pooling algorithm invalidates cached vectors atomically across
// deployments (spec §4.6's cache invariant).
const PoolingVersion = "v1"

// l2Normalize returns a unit-length copy of v, or a zero vector if v's norm
// is zero (spec §4.6 step 4's "zero-norm protection").
func l2Normalize(v []float32) []float32 {
	f := toFloat64(v)
	norm := floats.Norm(f, 2)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	floats.Scale(1/norm, f)
	return toFloat32(f, out)
}

// meanPool returns the arithmetic mean of vs, or a zero vector of dims d if
// vs is empty (spec §4.6 step 5: zero chunks -> zero vector).
func meanPool(vs [][]float32, d int) []float32 {
	sum := make([]float64, d)
	for _, v := range vs {
		for i, x := range v {
			if i < d {
				sum[i] += float64(x)
			}
		}
	}
	if len(vs) > 0 {
		floats.Scale(1/float64(len(vs)), sum)
	}
	return toFloat32(sum, make([]float32, d))
}

// normalizedMeanPool implements spec §4.6 step 4 exactly: L2-normalize
// each chunk vector, mean-pool, then L2-normalize the result.
func normalizedMeanPool(chunks [][]float32, dims int) []float32 {
	if len(chunks) == 0 {
		return make([]float32, dims)
	}
	normalized := make([][]float32, len(chunks))
	for i, c := range chunks {
		normalized[i] = l2Normalize(c)
	}
	return l2Normalize(meanPool(normalized, dims))
}

// CosineSimilarity computes cos(a, b) for two equal-length vectors,
// returning 0 if either has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	fa, fb := toFloat64(a), toFloat64(b)
	na, nb := floats.Norm(fa, 2), floats.Norm(fb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(fa, fb) / (na * nb)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func toFloat32(v []float64, out []float32) []float32 {
	for i, x := range v {
		if i < len(out) {
			out[i] = float32(x)
		}
	}
	return out
}
