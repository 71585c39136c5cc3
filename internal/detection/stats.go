package detection

import "math"

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// stdDev returns the population standard deviation.
func stdDev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := mean(v)
	var ss float64
	for _, x := range v {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(v)))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// correction turns a raw image-space angle into a correction angle.
// It never returns negative zero.
func correction(raw float64) float64 {
	if raw == 0 {
		return 0
	}
	return -raw
}
