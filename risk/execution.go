package risk

import (
	"context"

	"riskgate/broker"
	"riskgate/correlation"
	"riskgate/market"
)

// CheckExecution runs the execution-time checks on a concrete candidate
// against the currently open positions: concurrency cap, correlation
// conflict, then expected profitability after costs.
func (p *Pipeline) CheckExecution(ctx context.Context, cand Candidate, open []broker.Position) Decision {
	if p.policy.MaxConcurrent > 0 && len(open) >= p.policy.MaxConcurrent {
		return Block(ReasonMaxConcurrent, "%d open positions, max %d",
			len(open), p.policy.MaxConcurrent)
	}

	if d := p.checkCorrelation(ctx, cand, open); d != nil {
		return *d
	}

	if d := p.checkProfitability(ctx, cand); d != nil {
		return *d
	}

	return Allow()
}

// Same-direction exposure on a positively correlated symbol doubles the
// bet; opposite-direction exposure on a negatively correlated symbol does
// the same thing in disguise. Either blocks.
func (p *Pipeline) checkCorrelation(ctx context.Context, cand Candidate, open []broker.Position) *Decision {
	for _, pos := range open {
		res := p.corr.Relate(ctx, cand.Symbol, pos.Symbol)

		sameDir := cand.Direction == pos.Direction
		switch {
		case res.Relation == correlation.Positive && sameDir:
			return blockp(ReasonCorrelation, "%s %s duplicates %s %s (%s)",
				cand.Symbol, cand.Direction, pos.Symbol, pos.Direction, describe(res))
		case res.Relation == correlation.Negative && !sameDir:
			return blockp(ReasonCorrelation, "%s %s mirrors %s %s (%s)",
				cand.Symbol, cand.Direction, pos.Symbol, pos.Direction, describe(res))
		}
	}
	return nil
}

func describe(res correlation.Result) string {
	if res.Live {
		return res.Relation.String() + ", live"
	}
	return res.Relation.String() + ", static group"
}

// checkProfitability compares the expected net at take-profit against the
// gross, after spread and commission. Scale-invariant, so it works in pips
// per lot without knowing the eventual volume.
func (p *Pipeline) checkProfitability(ctx context.Context, cand Candidate) *Decision {
	if p.policy.MinNetRatio <= 0 {
		return nil
	}
	inst := market.Lookup(cand.Symbol)
	pip := market.PipSize(inst.PipLocation)

	grossPips := cand.TakeProfitDistance / pip
	if grossPips <= 0 {
		return blockp(ReasonProfitability, "non-positive take-profit distance")
	}

	tctx, cancel := context.WithTimeout(ctx, p.policy.CollaboratorTimeout())
	defer cancel()

	tick, err := p.market.GetTick(tctx, cand.Symbol)
	if err != nil {
		return blockp(ReasonProfitability, "tick unavailable: %v", err)
	}

	spreadPips := tick.Spread() / pip
	commissionPips := 0.0
	if inst.PipValue > 0 {
		commissionPips = p.policy.CommissionPerLot / inst.PipValue
	}

	net := grossPips - spreadPips - commissionPips
	if ratio := net / grossPips; ratio < p.policy.MinNetRatio {
		return blockp(ReasonProfitability, "net/gross %.2f below %.2f (gross %.1f, spread %.1f, commission %.1f pips)",
			ratio, p.policy.MinNetRatio, grossPips, spreadPips, commissionPips)
	}
	return nil
}
