package pricing

import (
	"time"

	"github.com/edgeline/edgeline/pkg/types"
	"go.uber.org/zap"
)

// EdgeResult is the per-outcome output of the edge calculation.
type EdgeResult struct {
	Edge              float64 // model probability minus market-implied probability
	ModelProbability  float64
	MarketProbability float64
	BestBook          string
	Fallback          bool // no quote existed; market probability is the 0.5 fallback
}

// Calculator converts model beliefs and market quotes into per-outcome
// edges. It is stateless and never fails: missing quotes degrade to
// the fallback implied probability so a partial research result can
// still produce a numeric answer for every outcome.
type Calculator struct {
	logger *zap.Logger
}

// New creates an edge calculator.
func New(logger *zap.Logger) *Calculator {
	return &Calculator{logger: logger}
}

// ComputeEdges computes the edge for every outcome the belief covers.
// For each outcome the best quote is the one maximizing edge, i.e. the
// most favorable price across books, not the first one found.
func (c *Calculator) ComputeEdges(belief *types.Belief, quotes []types.MarketQuote) map[string]EdgeResult {
	start := time.Now()
	results := make(map[string]EdgeResult, len(belief.OutcomeProbabilities))

	for outcome, modelProb := range belief.OutcomeProbabilities {
		results[outcome] = c.computeOutcome(belief.EventID, outcome, modelProb, quotes)
	}

	EdgeComputationSeconds.Observe(time.Since(start).Seconds())

	return results
}

func (c *Calculator) computeOutcome(eventID, outcome string, modelProb float64, quotes []types.MarketQuote) EdgeResult {
	best := EdgeResult{
		ModelProbability:  modelProb,
		MarketProbability: types.FallbackImpliedProbability,
		Edge:              modelProb - types.FallbackImpliedProbability,
		Fallback:          true,
	}

	for _, q := range quotes {
		if q.Outcome != outcome {
			continue
		}

		implied := q.ImpliedProbability()
		edge := modelProb - implied

		if best.Fallback || edge > best.Edge {
			best = EdgeResult{
				Edge:              edge,
				ModelProbability:  modelProb,
				MarketProbability: implied,
				BestBook:          q.BookID,
				Fallback:          false,
			}
		}
	}

	if best.Fallback {
		c.logger.Debug("edge-fallback-probability-used",
			zap.String("event-id", eventID),
			zap.String("outcome", outcome))
		FallbackEdgesTotal.Inc()
	}

	EdgesComputedTotal.Inc()
	EdgeDistribution.Observe(best.Edge)

	return best
}
