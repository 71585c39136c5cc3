package detection

import (
	"errors"
	"math"
	"sort"
)

// ErrNoSamples is returned by ClusterAngles for an empty sample set.
var ErrNoSamples = errors.New("no angle samples")

// trimFraction is dropped from each end of a cluster with trimMinMembers or more members.
const (
	trimFraction   = 0.2
	trimMinMembers = 5
)

// Clusters sorts a copy of samples and splits it wherever two neighbours
// differ by more than tolerance. The groups partition the sorted samples.
func Clusters(samples []float64, tolerance float64) [][]float64 {
	if len(samples) == 0 {
		return nil
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	var groups [][]float64
	start := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] > tolerance {
			groups = append(groups, sorted[start:i])
			start = i
		}
	}
	return append(groups, sorted[start:])
}

// ClusterAngles returns a robust central value for a set of angles.
//
// The largest cluster (see Clusters) is chosen; ties go to the first one
// found, which holds the lowest values. Clusters of five or more members
// lose floor(20%) of their values from each end before averaging; smaller
// clusters are averaged as they are. The input is not modified.
//
// For samples [0.1, 0.2, 0.15, 0.18, 0.9, -5.0] and tolerance 0.3 the
// winning cluster is {0.1, 0.15, 0.18, 0.2} and the result is 0.1575.
func ClusterAngles(samples []float64, tolerance float64) (float64, error) {
	groups := Clusters(samples, tolerance)
	if len(groups) == 0 {
		return 0, ErrNoSamples
	}

	best := groups[0]
	for _, g := range groups[1:] {
		if len(g) > len(best) {
			best = g
		}
	}

	if len(best) >= trimMinMembers {
		k := int(math.Floor(trimFraction * float64(len(best))))
		best = best[k : len(best)-k]
	}
	return mean(best), nil
}
