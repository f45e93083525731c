package s3_segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuartileBins_ValueCut(t *testing.T) {
	bins, fallback := QuartileBins([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	assert.False(t, fallback)
	// edges 1, 2.75, 4.5, 6.25, 8
	assert.Equal(t, []int{1, 1, 2, 2, 3, 3, 4, 4}, bins)
}

func TestQuartileBins_ValueCutKeepsTiesTogether(t *testing.T) {
	bins, fallback := QuartileBins([]float64{10, 1, 5, 5, 2, 9, 20, 3})
	assert.False(t, fallback)
	// sorted 1,2,3,5,5,9,10,20 → edges 1, 2.75, 5, 9.25, 20
	assert.Equal(t, []int{4, 1, 2, 2, 1, 3, 4, 2}, bins)
}

func TestQuartileBins_RankFallback(t *testing.T) {
	values := make([]float64, 10)
	for i := range values {
		values[i] = 1
	}

	bins, fallback := QuartileBins(values)
	assert.True(t, fallback)
	assert.Equal(t, []int{1, 1, 1, 2, 2, 3, 3, 4, 4, 4}, bins)
}

func TestQuartileBins_HeavyTiesAlwaysFourBins(t *testing.T) {
	// 대부분 1회 구매
	values := []float64{1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 3, 15}
	bins, fallback := QuartileBins(values)
	assert.True(t, fallback)

	seen := map[int]bool{}
	for _, b := range bins {
		assert.GreaterOrEqual(t, b, 1)
		assert.LessOrEqual(t, b, 4)
		seen[b] = true
	}
	assert.Len(t, seen, 4)

	// 랭크 순서 유지: 큰 값은 큰 bin
	assert.Equal(t, 4, bins[11])
}

func TestQuartileBins_RankFallbackStablePosition(t *testing.T) {
	bins, fallback := QuartileBins([]float64{5, 5, 5, 5, 1})
	assert.True(t, fallback)
	// ranks: 1→r1, 5s → r2..r5 in input order
	assert.Equal(t, 1, bins[4])
	assert.Equal(t, []int{1, 2, 3, 4}, bins[:4])
}

func TestQuartileBins_Small(t *testing.T) {
	bins, _ := QuartileBins([]float64{42})
	assert.Equal(t, []int{1}, bins)

	bins, fallback := QuartileBins([]float64{1, 2})
	assert.False(t, fallback)
	assert.Equal(t, []int{1, 4}, bins)

	bins, fallback = QuartileBins(nil)
	assert.Nil(t, bins)
	assert.False(t, fallback)
}
