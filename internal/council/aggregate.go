package council

import "github.com/alanyoungcy/oracles/internal/domain"

// Aggregate fuses agent forecasts with an unweighted mean. Each option is
// averaged only over the agents that assigned it a probability, then the
// means are renormalized.
func Aggregate(predictions []domain.AgentPrediction) map[string]float64 {
	if len(predictions) == 0 {
		return map[string]float64{}
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range predictions {
		for id, prob := range p.Predictions {
			sums[id] += prob
			counts[id]++
		}
	}

	means := make(map[string]float64, len(sums))
	for id, sum := range sums {
		means[id] = sum / float64(counts[id])
	}
	return Normalize(means)
}
