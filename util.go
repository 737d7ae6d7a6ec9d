package lexparse

import (
	"math"
)

var negInf = math.Inf(-1)

// isImpossible is true for negative infinity and for NaN, which the chart
// never stores
func isImpossible(score float64) bool {
	return math.IsInf(score, -1) || math.IsNaN(score)
}

// sanitize maps NaN to negative infinity
func sanitize(score float64) float64 {
	if math.IsNaN(score) {
		return negInf
	}
	return score
}

// logAdd returns log(exp(a) + exp(b)) without overflow
func logAdd(a, b float64) float64 {
	if isImpossible(a) {
		return b
	}
	if isImpossible(b) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	if math.IsInf(a, 1) {
		return a
	}
	return a + math.Log1p(math.Exp(b-a))
}
