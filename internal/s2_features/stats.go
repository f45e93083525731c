package s2_features

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

const day = 24 * time.Hour

// floorDays returns elapsed whole days (floor, also for negative durations)
func floorDays(d time.Duration) int {
	days := int(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}

// mean returns 0 for an empty sample
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	return stat.Mean(xs, nil)
}

// sampleStd is the N-1 standard deviation; 0 when fewer than 2 observations
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0.0
	}
	return stat.StdDev(xs, nil)
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// modeFirst returns the most frequent value; ties go to the value seen first
func modeFirst(values []int) int {
	if len(values) == 0 {
		return 0
	}
	counts := make(map[int]int)
	firstSeen := make(map[int]int)
	for i, v := range values {
		if _, ok := firstSeen[v]; !ok {
			firstSeen[v] = i
		}
		counts[v]++
	}

	best := values[0]
	for v, c := range counts {
		bc := counts[best]
		if c > bc || (c == bc && firstSeen[v] < firstSeen[best]) {
			best = v
		}
	}
	return best
}
