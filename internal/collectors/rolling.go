package collectors

// RollingAverage is a fixed-size circular buffer of recent samples.
type RollingAverage struct {
	data   []float64
	index  int
	filled int
}

// NewRollingAverage creates a buffer averaging the last size samples.
func NewRollingAverage(size int) *RollingAverage {
	if size < 1 {
		size = 1
	}
	return &RollingAverage{data: make([]float64, size)}
}

// Add records value and returns the average of the samples held so far.
func (ra *RollingAverage) Add(value float64) float64 {
	// simple index wrap-around technique
	if ra.index >= len(ra.data) {
		ra.index = 0
	}
	ra.data[ra.index] = value
	ra.index++
	if ra.filled < len(ra.data) {
		ra.filled++
	}

	var total float64
	for i := 0; i < ra.filled; i++ {
		total += ra.data[i]
	}
	return total / float64(ra.filled)
}
