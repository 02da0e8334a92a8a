// Package engine coordinates order management, position tracking, and risk
// checking across the trading system.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"degiro/internal/broker"
	"degiro/internal/domain"
	"degiro/internal/metrics"
	"degiro/internal/store"
)

// Engine orchestrates the trading lifecycle by delegating to a broker for
// execution, a journal for persistence, and a risk manager for pre-trade
// checks.
type Engine struct {
	broker      broker.Broker
	orders      store.OrderStore
	riskChecker *RiskManager
	log         *slog.Logger
	now         func() time.Time
}

// NewEngine creates a new Engine wired with the given dependencies. A nil
// riskChecker disables pre-trade checks.
func NewEngine(b broker.Broker, orders store.OrderStore, riskChecker *RiskManager, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		broker:      b,
		orders:      orders,
		riskChecker: riskChecker,
		log:         log.With("component", "engine"),
		now:         time.Now,
	}
}

// SubmitOrder journals the order as pending, runs the risk checks and
// forwards it to the broker. The journal entry ends accepted (or filled)
// with the broker's order id, or rejected with the reason. The returned
// order reflects the final journal state even when err is non-nil.
func (e *Engine) SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	o := *order
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.TimeInForce == "" {
		o.TimeInForce = domain.TimeInForceDay
	}
	o.Broker = e.broker.Name()
	o.Status = domain.OrderStatusPending
	o.CreatedAt = e.now().UTC()
	o.UpdatedAt = o.CreatedAt

	if err := e.orders.SaveOrder(ctx, &o); err != nil {
		return nil, fmt.Errorf("journaling order: %w", err)
	}
	log := e.log.With("order", o.ID, "symbol", o.Symbol, "side", o.Side, "qty", o.Qty)

	if e.riskChecker != nil {
		account, err := e.broker.GetAccount(ctx)
		if err != nil {
			return e.reject(ctx, &o, metrics.OutcomeRejected, fmt.Errorf("reading account: %w", err))
		}
		if err := e.riskChecker.CheckOrder(ctx, &o, account, e.referencePrice(ctx, &o)); err != nil {
			log.Warn("order blocked", "error", err)
			return e.reject(ctx, &o, metrics.OutcomeBlocked, err)
		}
	}

	start := time.Now()
	placed, err := e.broker.SubmitOrder(ctx, &o)
	metrics.OrderLatency.WithLabelValues(o.Broker).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warn("order rejected", "error", err)
		return e.reject(ctx, &o, metrics.OutcomeRejected, err)
	}

	o.BrokerOrderID = placed.BrokerOrderID
	o.Status = domain.OrderStatusAccepted
	if placed.Status == domain.OrderStatusFilled {
		o.Status = domain.OrderStatusFilled
	}
	o.UpdatedAt = e.now().UTC()
	if err := e.orders.UpdateOrder(ctx, &o); err != nil {
		return &o, fmt.Errorf("journaling accepted order %s: %w", o.BrokerOrderID, err)
	}
	metrics.OrdersSubmitted.WithLabelValues(o.Broker, metrics.OutcomeAccepted).Inc()
	log.Info("order accepted", "broker_order", o.BrokerOrderID, "status", o.Status)
	return &o, nil
}

// referencePrice quotes the order's symbol when the order has no price of
// its own and the broker can quote. It returns 0 when no price is known.
func (e *Engine) referencePrice(ctx context.Context, o *domain.Order) float64 {
	if o.LimitPrice != 0 || o.StopPrice != 0 {
		return 0
	}
	q, ok := e.broker.(broker.Quoter)
	if !ok {
		return 0
	}
	price, err := q.Quote(ctx, o.Symbol)
	if err != nil {
		e.log.Warn("quote failed", "symbol", o.Symbol, "error", err)
		return 0
	}
	return price
}

func (e *Engine) reject(ctx context.Context, o *domain.Order, outcome string, cause error) (*domain.Order, error) {
	metrics.OrdersSubmitted.WithLabelValues(o.Broker, outcome).Inc()
	o.Status = domain.OrderStatusRejected
	o.Reason = cause.Error()
	o.UpdatedAt = e.now().UTC()
	if err := e.orders.UpdateOrder(ctx, o); err != nil {
		return o, errors.Join(cause, fmt.Errorf("journaling rejection: %w", err))
	}
	return o, cause
}

// CancelOrder cancels an accepted order by its local journal id.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	o, err := e.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != domain.OrderStatusAccepted || o.BrokerOrderID == "" {
		return fmt.Errorf("order %s is %s, not cancellable", orderID, o.Status)
	}
	if o.Broker != e.broker.Name() {
		return fmt.Errorf("order %s belongs to broker %s", orderID, o.Broker)
	}
	if err := e.broker.CancelOrder(ctx, o.BrokerOrderID); err != nil {
		return err
	}

	o.Status = domain.OrderStatusCancelled
	o.UpdatedAt = e.now().UTC()
	if err := e.orders.UpdateOrder(ctx, o); err != nil {
		return fmt.Errorf("journaling cancellation: %w", err)
	}
	e.log.Info("order cancelled", "order", o.ID, "broker_order", o.BrokerOrderID)
	return nil
}

// Orders lists journaled orders, newest first. An empty status lists all.
func (e *Engine) Orders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return e.orders.ListOrders(ctx, status)
}

// GetPositions returns the broker's current positions.
func (e *Engine) GetPositions(ctx context.Context) ([]domain.Position, error) {
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	metrics.PositionsOpen.WithLabelValues(e.broker.Name()).Set(float64(len(positions)))
	return positions, nil
}

// GetAccount returns the broker's account snapshot.
func (e *Engine) GetAccount(ctx context.Context) (*domain.AccountInfo, error) {
	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		return nil, err
	}
	metrics.EquityGauge.WithLabelValues(e.broker.Name()).Set(account.Equity)
	return account, nil
}
