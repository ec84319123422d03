package utils

// RollingAverage is the average of the last few samples added to it.
type RollingAverage struct {
	data  []float64
	pos   int
	count int
}

// NewRollingAverage returns a RollingAverage over numSamples samples.
func NewRollingAverage(numSamples int) *RollingAverage {
	return &RollingAverage{data: make([]float64, max(numSamples, 1))}
}

// NumSamples returns the window size.
func (ra *RollingAverage) NumSamples() int {
	return len(ra.data)
}

// Add adds a sample, evicting the oldest one when the window is full.
func (ra *RollingAverage) Add(x float64) {
	ra.data[ra.pos] = x
	ra.pos++
	if ra.pos >= len(ra.data) {
		ra.pos = 0
	}
	if ra.count < len(ra.data) {
		ra.count++
	}
}

// Average returns the average of the samples in the window, 0 when there are none.
func (ra *RollingAverage) Average() float64 {
	if ra.count == 0 {
		return 0
	}
	sum := 0.
	for _, d := range ra.data[:ra.count] {
		sum += d
	}
	return sum / float64(ra.count)
}
