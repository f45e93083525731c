package s3_segment

import (
	"math"
	"sort"
)

// Quartiles is the number of score bins
const Quartiles = 4

// QuartileBins assigns each value a bin 1..4 (1 = lowest values).
//
// A value cut on linear-interpolated quantile edges is tried first; bins are
// right-closed and the lowest edge is included. When two edges coincide the
// value cut is not well defined and the values are binned by stable
// positional rank instead (ties keep input order), reported by fallback=true.
func QuartileBins(values []float64) (bins []int, fallback bool) {
	if len(values) == 0 {
		return nil, false
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	edges := quantileEdges(sorted)
	if uniqueEdges(edges) {
		return valueCut(values, edges), false
	}
	return rankCut(values), true
}

// quantileEdges returns the 0, .25, .5, .75, 1 quantiles (linear interpolation)
func quantileEdges(sorted []float64) []float64 {
	n := len(sorted)
	edges := make([]float64, Quartiles+1)
	for i := 0; i <= Quartiles; i++ {
		pos := float64(n-1) * float64(i) / Quartiles
		lo := int(math.Floor(pos))
		frac := pos - float64(lo)
		if lo+1 >= n || frac == 0 {
			edges[i] = sorted[lo]
			continue
		}
		edges[i] = sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
	}
	return edges
}

func uniqueEdges(edges []float64) bool {
	for i := 1; i < len(edges); i++ {
		if edges[i] == edges[i-1] {
			return false
		}
	}
	return true
}

func valueCut(values, edges []float64) []int {
	bins := make([]int, len(values))
	for i, v := range values {
		bin := Quartiles
		for b := 1; b <= Quartiles; b++ {
			if v <= edges[b] {
				bin = b
				break
			}
		}
		bins[i] = bin
	}
	return bins
}

// rankCut bins positional ranks 1..n; rank r falls in the smallest bin b with
// (r-1)*4 <= b*(n-1), which equals a value cut over the distinct ranks
func rankCut(values []float64) []int {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	bins := make([]int, n)
	for rank0, idx := range order {
		bin := Quartiles
		for b := 1; b <= Quartiles; b++ {
			if rank0*Quartiles <= b*(n-1) {
				bin = b
				break
			}
		}
		bins[idx] = bin
	}
	return bins
}
