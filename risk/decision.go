package risk

import (
	"fmt"

	"riskgate/broker"
)

// Reason identifies which check blocked a candidate. The set is fixed so
// operators and logs can distinguish causes without parsing free text.
type Reason string

const (
	ReasonCircuitBreaker Reason = "circuit_breaker"
	ReasonDailyLimit     Reason = "daily_limit"
	ReasonKillSwitch     Reason = "kill_switch"
	ReasonPayoffMandate  Reason = "payoff_mandate"
	ReasonDailyLossLimit Reason = "daily_loss_limit"
	ReasonCooldown       Reason = "cooldown"
	ReasonSpread         Reason = "spread"
	ReasonNews           Reason = "news"
	ReasonSession        Reason = "session"
	ReasonMaxConcurrent  Reason = "max_concurrent"
	ReasonCorrelation    Reason = "correlation"
	ReasonProfitability  Reason = "profitability"
)

// Decision is produced fresh on every gate call, never cached.
type Decision struct {
	Allowed bool
	Reason  Reason
	Detail  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Block(reason Reason, format string, args ...any) Decision {
	return Decision{
		Allowed: false,
		Reason:  reason,
		Detail:  fmt.Sprintf(format, args...),
	}
}

// Candidate is a proposed trade from the signal layer, consumed once by the
// execution gate and the sizer.
type Candidate struct {
	Symbol             string
	Direction          broker.Direction
	StopDistance       float64 // price terms
	TakeProfitDistance float64 // price terms
	Confluence         int
}
