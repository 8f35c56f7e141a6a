package detect

import (
	"sync"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
)

// Combination is one of the four leg-direction pairings a cross-coin
// correlation trade can take. Grounded on original_source's
// crates/exchange-polymarket/src/arbitrage/cross_market_types.rs
// CrossMarketCombination.
type Combination int

const (
	Coin1UpCoin2Down Combination = iota
	Coin1DownCoin2Up
	BothUp
	BothDown
)

func (c Combination) directions() (leg1Up, leg2Up bool) {
	switch c {
	case Coin1UpCoin2Down:
		return true, false
	case Coin1DownCoin2Up:
		return false, true
	case BothUp:
		return true, true
	default:
		return false, false
	}
}

func (c Combination) String() string {
	switch c {
	case Coin1UpCoin2Down:
		return "Coin1UpCoin2Down"
	case Coin1DownCoin2Up:
		return "Coin1DownCoin2Up"
	case BothUp:
		return "BothUp"
	default:
		return "BothDown"
	}
}

// AllCombinations lists every combination, matching the original's
// CrossMarketCombination::all().
func AllCombinations() []Combination {
	return []Combination{Coin1UpCoin2Down, Coin1DownCoin2Up, BothUp, BothDown}
}

// CoinMarketSnapshot is one coin's current 15-minute market prices, fed
// from the live order book rather than Kalshi — this is a same-venue,
// cross-coin correlation strategy (BTC/ETH/SOL/XRP move together ~85% of
// the time), not a cross-exchange one. See DESIGN.md for the correction
// of an earlier mischaracterization of this detector.
type CoinMarketSnapshot struct {
	Coin        string
	UpPrice     money.Price
	DownPrice   money.Price
	UpTokenID   string
	DownTokenID string
	TimestampMs int64
}

func (s CoinMarketSnapshot) priceFor(up bool) money.Price {
	if up {
		return s.UpPrice
	}
	return s.DownPrice
}

func (s CoinMarketSnapshot) tokenFor(up bool) string {
	if up {
		return s.UpTokenID
	}
	return s.DownTokenID
}

// CrossMarketOpportunity is a detected two-leg trade whose combined cost
// is below $1.00, with positive expected value under the assumed
// correlation model.
type CrossMarketOpportunity struct {
	Coin1, Coin2     string
	Combination      Combination
	Leg1Direction    string
	Leg1Price        money.Price
	Leg1TokenID      string
	Leg2Direction    string
	Leg2Price        money.Price
	Leg2TokenID      string
	TotalCost        money.Price
	Spread           money.Price
	ExpectedValue    money.Price
	AssumedCorrelation float64
	WinProbability   float64
	DetectedAtMs     int64
}

// CrossMarketConfig mirrors original_source's CrossMarketConfig::default().
type CrossMarketConfig struct {
	MaxTotalCost      money.Price
	MinSpread         money.Price
	AssumedCorrelation float64
	MinExpectedValue  money.Price
	SignalCooldownMs  int64
	FeeRate           float64
	MinDepth          money.Price
}

func DefaultCrossMarketConfig() CrossMarketConfig {
	return CrossMarketConfig{
		MaxTotalCost:       money.NewFromFloat(0.95),
		MinSpread:          money.NewFromFloat(0.03),
		AssumedCorrelation: 0.85,
		MinExpectedValue:   money.NewFromFloat(0.01),
		SignalCooldownMs:   5_000,
		FeeRate:            0.02,
		MinDepth:           money.Zero,
	}
}

type cmKey struct {
	coin1, coin2 string
	combo        Combination
}

// CrossMarketDetector scans every coin pair across the configured
// combinations for correlation-arbitrage opportunities.
type CrossMarketDetector struct {
	cfg  CrossMarketConfig
	mu   sync.Mutex
	last map[cmKey]int64
}

func NewCrossMarketDetector(cfg CrossMarketConfig) *CrossMarketDetector {
	return &CrossMarketDetector{cfg: cfg, last: make(map[cmKey]int64)}
}

// Check scans all unique coin pairs from markets across every combination
// and returns every opportunity clearing the configured thresholds.
func (d *CrossMarketDetector) Check(markets []CoinMarketSnapshot, nowMs int64) []CrossMarketOpportunity {
	var opportunities []CrossMarketOpportunity
	for i := 0; i < len(markets); i++ {
		for j := i + 1; j < len(markets); j++ {
			m1, m2 := markets[i], markets[j]
			for _, combo := range AllCombinations() {
				if opp, ok := d.checkCombination(m1, m2, combo, nowMs); ok {
					opportunities = append(opportunities, opp)
				}
			}
		}
	}
	return opportunities
}

func (d *CrossMarketDetector) checkCombination(m1, m2 CoinMarketSnapshot, combo Combination, nowMs int64) (CrossMarketOpportunity, bool) {
	key := cmKey{m1.Coin, m2.Coin, combo}

	d.mu.Lock()
	if last, ok := d.last[key]; ok && nowMs-last < d.cfg.SignalCooldownMs {
		d.mu.Unlock()
		return CrossMarketOpportunity{}, false
	}
	d.mu.Unlock()

	leg1Up, leg2Up := combo.directions()
	leg1Price := m1.priceFor(leg1Up)
	leg2Price := m2.priceFor(leg2Up)
	totalCost := leg1Price.Add(leg2Price)

	if totalCost.GreaterThan(d.cfg.MaxTotalCost) {
		return CrossMarketOpportunity{}, false
	}

	spread := money.One.Sub(totalCost)
	if spread.LessThan(d.cfg.MinSpread) {
		return CrossMarketOpportunity{}, false
	}

	winProb := d.winProbability(combo)
	ev := d.expectedValue(totalCost, winProb)
	if ev.LessThan(d.cfg.MinExpectedValue) {
		return CrossMarketOpportunity{}, false
	}

	d.mu.Lock()
	d.last[key] = nowMs
	d.mu.Unlock()

	leg1Dir, leg2Dir := "DOWN", "DOWN"
	if leg1Up {
		leg1Dir = "UP"
	}
	if leg2Up {
		leg2Dir = "UP"
	}

	return CrossMarketOpportunity{
		Coin1:              m1.Coin,
		Coin2:              m2.Coin,
		Combination:        combo,
		Leg1Direction:      leg1Dir,
		Leg1Price:          leg1Price,
		Leg1TokenID:        m1.tokenFor(leg1Up),
		Leg2Direction:      leg2Dir,
		Leg2Price:          leg2Price,
		Leg2TokenID:        m2.tokenFor(leg2Up),
		TotalCost:          totalCost,
		Spread:             spread,
		ExpectedValue:      ev,
		AssumedCorrelation: d.cfg.AssumedCorrelation,
		WinProbability:     winProb,
		DetectedAtMs:       nowMs,
	}, true
}

// winProbability implements the original's correlation model: P(at least
// one leg wins), derived from the assumed pairwise correlation rho.
func (d *CrossMarketDetector) winProbability(combo Combination) float64 {
	rho := d.cfg.AssumedCorrelation
	pBothUp := 0.5 * (0.5 + 0.5*rho)
	pBothDown := 0.5 * (0.5 + 0.5*rho)

	switch combo {
	case Coin1UpCoin2Down:
		pC1UpC2Down := 0.5 * (0.5 - 0.5*rho)
		return pBothUp + pBothDown + pC1UpC2Down
	case Coin1DownCoin2Up:
		pC1DownC2Up := 0.5 * (0.5 - 0.5*rho)
		return pBothUp + pBothDown + pC1DownC2Up
	case BothUp:
		return 1.0 - pBothDown
	default: // BothDown
		return 1.0 - pBothUp
	}
}

// expectedValue = P(win) * (payout - fee) - cost, payout always $1.00,
// fee charged only on the winning side.
func (d *CrossMarketDetector) expectedValue(totalCost money.Price, winProb float64) money.Price {
	feeAdjustedPayout := money.One.Mul(money.NewFromFloat(1 - d.cfg.FeeRate))
	return feeAdjustedPayout.Mul(money.NewFromFloat(winProb)).Sub(totalCost)
}
