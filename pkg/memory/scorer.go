package memory

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Default composite-score parameters.
const (
	DefaultSemanticWeight      = 0.45
	DefaultRecencyWeight       = 0.35
	DefaultReinforcementWeight = 0.20
	DefaultHalfLife            = 24 * time.Hour
	DefaultTopK                = 6
)

// Weights blends the three ranking signals. They must sum to 1.0.
type Weights struct {
	Semantic      float64
	Recency       float64
	Reinforcement float64
}

// DefaultWeights returns the standard 0.45/0.35/0.20 blend.
func DefaultWeights() Weights {
	return Weights{
		Semantic:      DefaultSemanticWeight,
		Recency:       DefaultRecencyWeight,
		Reinforcement: DefaultReinforcementWeight,
	}
}

/*
CompositeScorer ranks candidate records against a query by blending the vector
store's similarity, an exponential recency decay, and accumulated
reinforcement into one scalar. Scoring is lazy: it happens at recall time,
never on write.
*/
type CompositeScorer struct {
	weights  Weights
	halfLife time.Duration
	topK     int
}

// NewCompositeScorer validates the weight blend and returns a scorer. Zero
// halfLife and topK fall back to the defaults.
func NewCompositeScorer(weights Weights, halfLife time.Duration, topK int) (*CompositeScorer, error) {
	sum := weights.Semantic + weights.Recency + weights.Reinforcement
	if math.Abs(sum-1.0) > 1e-9 {
		return nil, fmt.Errorf("composite weights must sum to 1.0, got %v", sum)
	}
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &CompositeScorer{weights: weights, halfLife: halfLife, topK: topK}, nil
}

// NewDefaultScorer returns a scorer with the standard parameters.
func NewDefaultScorer() *CompositeScorer {
	scorer, _ := NewCompositeScorer(DefaultWeights(), DefaultHalfLife, DefaultTopK)
	return scorer
}

// TopK reports how many records Rank returns at most.
func (s *CompositeScorer) TopK() int { return s.topK }

/*
Rank computes composite scores for the candidates and returns the top-K sorted
descending. Ties keep the vector store's result order (stable sort). The
reinforcement term is the raw running sum; deltas are clamped when applied,
not here.
*/
func (s *CompositeScorer) Rank(candidates []Record, now time.Time) []Record {
	ranked := make([]Record, len(candidates))
	copy(ranked, candidates)

	for i := range ranked {
		ranked[i].CompositeScore = s.weights.Semantic*ranked[i].Similarity +
			s.weights.Recency*s.Recency(ranked[i].CreatedAt, now) +
			s.weights.Reinforcement*ranked[i].Reinforcement
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})

	if len(ranked) > s.topK {
		ranked = ranked[:s.topK]
	}

	return ranked
}

// Recency computes exp(-ln2/H · age) for a record created at createdAt: 1.0
// at age zero, 0.5 at one half-life, asymptotically zero and never negative.
func (s *CompositeScorer) Recency(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1.0
	}
	hours := age.Hours()
	return math.Exp(-math.Ln2 / s.halfLife.Hours() * hours)
}
