// Package correlation classifies the relationship between a candidate symbol
// and each already-open symbol: Pearson correlation over recent 1-period
// returns when enough history exists, otherwise a static group table. The
// evaluator only classifies; blocking is the gating pipeline's call.
package correlation

import (
	"context"
	"math"

	"riskgate/broker"
)

type Relation int

const (
	Uncorrelated Relation = iota
	Positive
	Negative
)

func (r Relation) String() string {
	switch r {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "uncorrelated"
	}
}

// Group is a static fallback entry: Symbols move together, Inverse symbols
// move against them (and together among themselves).
type Group struct {
	Name    string   `yaml:"name" json:"name"`
	Symbols []string `yaml:"symbols" json:"symbols"`
	Inverse []string `yaml:"inverse,omitempty" json:"inverse,omitempty"`
}

type Config struct {
	Window            int     `yaml:"window" json:"window"`
	MinObservations   int     `yaml:"min_observations" json:"min_observations"`
	PositiveThreshold float64 `yaml:"positive_threshold" json:"positive_threshold"`
	NegativeThreshold float64 `yaml:"negative_threshold" json:"negative_threshold"`
	Groups            []Group `yaml:"groups" json:"groups"`
}

// Result of relating two symbols. Coefficient is only meaningful when the
// classification came from live data.
type Result struct {
	Symbol      string
	Relation    Relation
	Coefficient float64
	Live        bool
}

type Evaluator struct {
	cfg  Config
	data broker.MarketData
}

func NewEvaluator(cfg Config, data broker.MarketData) *Evaluator {
	return &Evaluator{cfg: cfg, data: data}
}

// Relate classifies symbol b relative to symbol a.
func (e *Evaluator) Relate(ctx context.Context, a, b string) Result {
	if a == b {
		return Result{Symbol: b, Relation: Positive, Coefficient: 1}
	}

	ra, err := e.returns(ctx, a)
	if err == nil {
		rb, err := e.returns(ctx, b)
		if err == nil {
			n := len(ra)
			if len(rb) < n {
				n = len(rb)
			}
			if n >= e.cfg.MinObservations {
				coef := pearson(ra[len(ra)-n:], rb[len(rb)-n:])
				return Result{
					Symbol:      b,
					Relation:    e.classify(coef),
					Coefficient: coef,
					Live:        true,
				}
			}
		}
	}

	return Result{Symbol: b, Relation: e.static(a, b)}
}

func (e *Evaluator) classify(coef float64) Relation {
	switch {
	case coef >= e.cfg.PositiveThreshold:
		return Positive
	case coef <= -e.cfg.NegativeThreshold:
		return Negative
	default:
		return Uncorrelated
	}
}

// static looks the pair up in the configured group table.
func (e *Evaluator) static(a, b string) Relation {
	for _, g := range e.cfg.Groups {
		aFwd, aInv := contains(g.Symbols, a), contains(g.Inverse, a)
		bFwd, bInv := contains(g.Symbols, b), contains(g.Inverse, b)
		switch {
		case (aFwd && bFwd) || (aInv && bInv):
			return Positive
		case (aFwd && bInv) || (aInv && bFwd):
			return Negative
		}
	}
	return Uncorrelated
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (e *Evaluator) returns(ctx context.Context, symbol string) ([]float64, error) {
	candles, err := e.data.RecentCandles(ctx, symbol, e.cfg.Window+1)
	if err != nil {
		return nil, err
	}
	return pctReturns(candles), nil
}

// pctReturns converts closes into 1-period percentage returns.
func pctReturns(candles []broker.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			continue
		}
		out = append(out, (candles[i].Close-prev)/prev)
	}
	return out
}

// pearson computes the correlation coefficient of two equal-length series.
// Returns 0 when either series has no variance.
func pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range x {
		dx, dy := x[i]-meanX, y[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
