// Package broker defines the Broker interface and provides implementations
// for executing orders and managing accounts across different brokerages.
package broker

import (
	"context"
	"errors"

	"degiro/internal/domain"
)

// ErrUnsupportedOrder is returned when a backend cannot express an order's
// type or time in force.
var ErrUnsupportedOrder = errors.New("broker: unsupported order")

// Broker abstracts brokerage operations for order execution and account management.
type Broker interface {
	// Name returns the broker identifier (e.g. "degiro", "alpaca", "simulator").
	Name() string

	// SubmitOrder sends an order to the brokerage for execution. The returned
	// order carries the broker-assigned BrokerOrderID.
	SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)

	// CancelOrder requests cancellation of an open order by its broker ID.
	CancelOrder(ctx context.Context, orderID string) error

	// GetPositions returns all current positions held at the brokerage.
	GetPositions(ctx context.Context) ([]domain.Position, error)

	// GetAccount returns a snapshot of the account's financial metrics.
	GetAccount(ctx context.Context) (*domain.AccountInfo, error)
}

// Quoter is implemented by brokers that can price a symbol. The engine uses
// the quote to value orders that carry no limit or stop price.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}
