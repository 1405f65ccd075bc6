// Package council runs a set of independent model agents against a market
// and fuses their forecasts into one probability distribution.
package council

// Normalize scales non-negative weights so they sum to 1. When every weight
// is zero the result is uniform over the same keys. An empty input yields an
// empty map.
func Normalize(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	if len(weights) == 0 {
		return out
	}

	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		uniform := 1 / float64(len(weights))
		for k := range weights {
			out[k] = uniform
		}
		return out
	}

	for k, w := range weights {
		out[k] = w / sum
	}
	return out
}
