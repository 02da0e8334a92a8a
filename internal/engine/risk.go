package engine

import (
	"context"
	"errors"
	"fmt"

	"degiro/internal/domain"
)

// ErrRiskLimit is returned when an order breaches a pre-trade limit.
var ErrRiskLimit = errors.New("risk limit exceeded")

// RiskManager enforces pre-trade risk rules. A zero limit is disabled.
type RiskManager struct {
	maxPositionPct float64
	maxOrderValue  float64
}

// NewRiskManager creates a RiskManager with the specified risk thresholds.
//
//   - maxPositionPct: maximum fraction of equity a single buy may commit
//     (e.g. 0.10 for 10%).
//   - maxOrderValue: maximum notional value of a single order in account
//     currency.
func NewRiskManager(maxPositionPct, maxOrderValue float64) *RiskManager {
	return &RiskManager{
		maxPositionPct: maxPositionPct,
		maxOrderValue:  maxOrderValue,
	}
}

// CheckOrder evaluates whether the proposed order complies with the
// configured risk limits given the current account state. The order is
// valued at its limit or stop price, else at refPrice. An order that cannot
// be valued is blocked whenever a limit applies to it.
func (rm *RiskManager) CheckOrder(_ context.Context, order *domain.Order, account *domain.AccountInfo, refPrice float64) error {
	if rm == nil {
		return nil
	}
	checkPct := rm.maxPositionPct > 0 && order.Side == domain.OrderSideBuy && account != nil
	if rm.maxOrderValue <= 0 && !checkPct {
		return nil
	}

	notional := order.Notional(refPrice)
	if notional <= 0 {
		return fmt.Errorf("%w: no price to value %s order for %s", ErrRiskLimit, order.Type, order.Symbol)
	}

	if rm.maxOrderValue > 0 && notional > rm.maxOrderValue {
		return fmt.Errorf("%w: order value %.2f above %.2f", ErrRiskLimit, notional, rm.maxOrderValue)
	}

	if checkPct {
		limit := account.Equity * rm.maxPositionPct
		if notional > limit {
			return fmt.Errorf("%w: order value %.2f above %.0f%% of equity (%.2f)",
				ErrRiskLimit, notional, rm.maxPositionPct*100, limit)
		}
	}
	return nil
}
