// Package domain holds broker-agnostic trading types shared by the engine,
// the broker backends and the stores.
package domain

import "time"

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// TimeInForce is how long an order stays working.
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
)

// OrderStatus is the lifecycle state of an order in the journal.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is an order as tracked locally. ID is the local journal id;
// BrokerOrderID is assigned by the broker once the order is accepted.
type Order struct {
	ID            string
	BrokerOrderID string
	Broker        string
	Symbol        string
	Side          OrderSide
	Type          OrderType
	TimeInForce   TimeInForce
	Qty           float64
	LimitPrice    float64 // 0 when unused
	StopPrice     float64 // 0 when unused
	Status        OrderStatus
	Reason        string // rejection or cancellation reason
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Notional is the order's value at its limit price, or at refPrice when the
// order has none.
func (o *Order) Notional(refPrice float64) float64 {
	p := o.LimitPrice
	if p == 0 {
		p = o.StopPrice
	}
	if p == 0 {
		p = refPrice
	}
	return p * o.Qty
}

// PositionSide is long or short.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// Position is a holding at a broker.
type Position struct {
	Symbol      string
	ProductID   string
	Qty         float64
	Side        PositionSide
	AvgPrice    float64
	Price       float64
	MarketValue float64
	Currency    string
}

// AccountInfo is a snapshot of an account's money. CashByFund is keyed by
// the broker's fund or currency identifier.
type AccountInfo struct {
	Cash        float64
	Equity      float64
	BuyingPower float64
	CashByFund  map[string]float64
}
