package aggregator

import "context"

// CombinationMethod selects how Composite merges its generators' outputs.
// Grounded on original_source's crates/signals/src/generator/composite.rs.
type CombinationMethod int

const (
	WeightedAverage CombinationMethod = iota
	Voting
	Strongest
)

// Composite combines multiple generators into a single SignalValue per
// spec.md §4.3: "Weighted combine with one of three tie-breaks."
type Composite struct {
	name       string
	generators []Generator
	method     CombinationMethod
}

func NewComposite(name string, method CombinationMethod, generators ...Generator) *Composite {
	return &Composite{name: name, generators: append([]Generator(nil), generators...), method: method}
}

// WithGenerator returns a new Composite with g appended — mirrors the
// original's builder-style with_generator.
func (c *Composite) WithGenerator(g Generator) *Composite {
	return &Composite{name: c.name, method: c.method, generators: append(append([]Generator(nil), c.generators...), g)}
}

func (c *Composite) AddGenerator(g Generator) {
	c.generators = append(c.generators, g)
}

func (c *Composite) GeneratorCount() int { return len(c.generators) }

func (c *Composite) Name() string   { return c.name }
func (c *Composite) Weight() float64 { return 1.0 }

// weighted pairs a computed SignalValue with the generator weight that
// produced it, for the combine* functions below.
type weighted struct {
	v SignalValue
	w float64
}

func (c *Composite) Compute(ctx context.Context) (SignalValue, error) {
	results := make([]weighted, 0, len(c.generators))
	for _, g := range c.generators {
		v, err := g.Compute(ctx)
		if err != nil {
			return SignalValue{}, err
		}
		results = append(results, weighted{v: v, w: g.Weight()})
	}

	if len(results) == 0 {
		return SignalValue{Direction: Neutral}, nil
	}

	switch c.method {
	case Voting:
		return combineVoting(results), nil
	case Strongest:
		return combineStrongest(results), nil
	default:
		return combineWeightedAverage(results), nil
	}
}

func combineWeightedAverage(results []weighted) SignalValue {
	var totalWeight, scoreSum, strengthSum, confidenceSum float64
	for _, r := range results {
		totalWeight += r.w
		scoreSum += r.w * r.v.Direction.score() * r.v.Strength
		strengthSum += r.w * r.v.Strength
		confidenceSum += r.w * r.v.Confidence
	}
	if totalWeight == 0 {
		return SignalValue{Direction: Neutral}
	}

	directionScore := scoreSum / totalWeight
	avgStrength := strengthSum / totalWeight
	avgConfidence := confidenceSum / totalWeight

	var dir Direction
	switch {
	case directionScore > 0.1:
		dir = Up
	case directionScore < -0.1:
		dir = Down
	default:
		dir = Neutral
	}

	return SignalValue{
		Direction:  dir,
		Strength:   clamp01(avgStrength),
		Confidence: clamp01(avgConfidence),
		Metadata:   map[string]float64{"direction_score": directionScore},
	}
}

func combineVoting(results []weighted) SignalValue {
	var upWeight, downWeight, neutralWeight float64
	var strengthSum, confidenceSum, totalWeight float64
	for _, r := range results {
		totalWeight += r.w
		strengthSum += r.w * r.v.Strength
		confidenceSum += r.w * r.v.Confidence
		switch r.v.Direction {
		case Up:
			upWeight += r.w
		case Down:
			downWeight += r.w
		default:
			neutralWeight += r.w
		}
	}

	var dir Direction
	switch {
	case upWeight > downWeight && upWeight > neutralWeight:
		dir = Up
	case downWeight > upWeight && downWeight > neutralWeight:
		dir = Down
	default:
		dir = Neutral
	}

	if totalWeight == 0 {
		return SignalValue{Direction: Neutral}
	}

	return SignalValue{
		Direction:  dir,
		Strength:   clamp01(strengthSum / totalWeight),
		Confidence: clamp01(confidenceSum / totalWeight),
		Metadata:   map[string]float64{"up_weight": upWeight, "down_weight": downWeight, "neutral_weight": neutralWeight},
	}
}

func combineStrongest(results []weighted) SignalValue {
	best := SignalValue{Direction: Neutral}
	bestScore := -1.0
	found := false
	for _, r := range results {
		if r.v.Direction == Neutral {
			continue
		}
		score := r.w * r.v.Strength
		if score > bestScore {
			bestScore = score
			best = r.v
			found = true
		}
	}
	if !found {
		return SignalValue{Direction: Neutral}
	}
	return best
}
