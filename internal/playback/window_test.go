package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowBounded(t *testing.T) {
	w := newWindow(3)

	for i := 1; i <= 5; i++ {
		w.Add(float64(i))
	}

	assert.Equal(t, 3, w.Len(), "window must never exceed its capacity")
	assert.Equal(t, float64(4), w.Median(), "oldest samples must be evicted first")
}

func TestWindowMedianRobustToOutlier(t *testing.T) {
	w := newWindow(10)

	w.Add(100)
	w.Add(110)
	w.Add(105)
	w.Add(9000) // single outlier

	assert.InDelta(t, 107.5, w.Median(), 0.001)
	assert.Greater(t, w.Mean(), 1000.0, "mean is pulled by the outlier, median is not")
}

func TestWindowIdenticalSamplesConverge(t *testing.T) {
	w := newWindow(10)

	for i := 0; i < 10; i++ {
		w.Add(42.5)
	}

	assert.Equal(t, 42.5, w.Median())
	assert.Equal(t, 42.5, w.Mean())
}

func TestWindowEmpty(t *testing.T) {
	w := newWindow(5)

	assert.Equal(t, float64(0), w.Median())
	assert.Equal(t, float64(0), w.Mean())
}

func TestWindowMedianOddAndEven(t *testing.T) {
	w := newWindow(10)

	w.Add(3)
	w.Add(1)
	w.Add(2)
	assert.Equal(t, float64(2), w.Median())

	w.Add(4)
	assert.Equal(t, 2.5, w.Median())
}
