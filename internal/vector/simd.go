package vector

// The teacher's SIMD file was a permanent placeholder (isSIMDAvailable
// always false, every *SIMD function delegating to the scalar version).
// Its real job — an accelerated batch path for scoring one query against
// many candidate chunks — is implemented here on top of gonum/floats
// instead, which is what the TODOs in that file pointed at.

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// BatchSimilarity scores query against every vector in candidates under the
// given metric. It widens once per candidate rather than allocating
// per-pair the way a naive nested loop does, and reuses the query's norm
// across the whole batch for cosine.
func BatchSimilarity(metric Metric, query Vector, candidates []Vector) []float32 {
	scores := make([]float32, len(candidates))
	if len(candidates) == 0 {
		return scores
	}

	fq := to64(query)
	queryNorm := math.Sqrt(floats.Dot(fq, fq))

	for i, c := range candidates {
		switch metric {
		case MetricDot:
			scores[i] = float32(floats.Dot(fq, to64(c)))
		case MetricEuclidean:
			diff := make([]float64, len(query))
			for j := range query {
				diff[j] = fq[j] - float64(c[j])
			}
			d := math.Sqrt(floats.Dot(diff, diff))
			scores[i] = float32(1 / (1 + d))
		default:
			fc := to64(c)
			cNorm := math.Sqrt(floats.Dot(fc, fc))
			if queryNorm == 0 || cNorm == 0 {
				scores[i] = 0
				continue
			}
			cos := floats.Dot(fq, fc) / (queryNorm * cNorm)
			scores[i] = float32((cos + 1) / 2)
		}
	}
	return scores
}
