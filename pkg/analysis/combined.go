package analysis

import (
	"gonum.org/v1/gonum/floats"
)

// CombinedAnalysis scores an instance against several datasets at once, for
// example frames with different injection levels sharing one CTI model.
type CombinedAnalysis struct {
	analyses []Analysis
	pool     Pool
}

// NewCombinedAnalysis combines analyses, evaluating them through pool. A nil
// pool runs them consecutively.
func NewCombinedAnalysis(pool Pool, analyses ...Analysis) *CombinedAnalysis {
	if pool == nil {
		pool = ConsecutivePool{}
	}
	return &CombinedAnalysis{analyses: analyses, pool: pool}
}

// LogLikelihoodFunction returns the sum of every analysis' log likelihood,
// added in analysis order so the total does not depend on scheduling.
func (c *CombinedAnalysis) LogLikelihoodFunction(instance Instance) (float64, error) {
	values, err := c.pool.Map(len(c.analyses), func(i int) (float64, error) {
		return c.analyses[i].LogLikelihoodFunction(instance)
	})
	if err != nil {
		return 0, err
	}
	return floats.Sum(values), nil
}
