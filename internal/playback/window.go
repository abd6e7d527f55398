package playback

import "sort"

// window is a bounded rolling set of raw samples. Samples are never
// exposed individually, only through Median or Mean.
type window struct {
	max     int
	samples []float64
}

func newWindow(max int) *window {
	return &window{max: max, samples: make([]float64, 0, max)}
}

func (w *window) Add(v float64) {
	w.samples = append(w.samples, v)
	if len(w.samples) > w.max {
		w.samples = w.samples[1:]
	}
}

func (w *window) Len() int {
	return len(w.samples)
}

// Median is robust to single outliers, unlike the mean.
func (w *window) Median() float64 {
	if len(w.samples) == 0 {
		return 0
	}

	sorted := make([]float64, len(w.samples))
	copy(sorted, w.samples)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}

	return sorted[mid]
}

func (w *window) Mean() float64 {
	if len(w.samples) == 0 {
		return 0
	}

	var sum float64
	for _, v := range w.samples {
		sum += v
	}

	return sum / float64(len(w.samples))
}
