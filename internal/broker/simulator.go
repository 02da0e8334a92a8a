package broker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"degiro/internal/domain"
)

// Compile-time interface checks.
var (
	_ Broker = (*SimulatorBroker)(nil)
	_ Quoter = (*SimulatorBroker)(nil)
)

var (
	// ErrNoPrice is returned when a symbol has no known price.
	ErrNoPrice = errors.New("broker: no price for symbol")
	// ErrInsufficientFunds is returned when a buy exceeds available cash.
	ErrInsufficientFunds = errors.New("simulator: insufficient funds")
	// ErrInsufficientPosition is returned when a sell exceeds the held
	// quantity.
	ErrInsufficientPosition = errors.New("simulator: insufficient position")
)

// SimulatorBroker implements the Broker interface for paper trading. Orders
// fill immediately in full at their limit or stop price, or at the mark
// price for market orders. State lives in memory.
type SimulatorBroker struct {
	mu        sync.Mutex
	cash      float64
	seq       int
	marks     map[string]float64
	positions map[string]*domain.Position
	orders    map[string]*domain.Order
}

// NewSimulatorBroker creates a SimulatorBroker holding cash and no
// positions.
func NewSimulatorBroker(cash float64) *SimulatorBroker {
	return &SimulatorBroker{
		cash:      cash,
		marks:     make(map[string]float64),
		positions: make(map[string]*domain.Position),
		orders:    make(map[string]*domain.Order),
	}
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string {
	return "simulator"
}

// SetPrice sets the mark price used for market fills and valuation.
func (b *SimulatorBroker) SetPrice(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marks[symbol] = price
	if p, ok := b.positions[symbol]; ok {
		p.Price = price
		p.MarketValue = price * p.Qty
	}
}

// Quote returns the mark price of symbol.
func (b *SimulatorBroker) Quote(_ context.Context, symbol string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := b.marks[symbol]; p > 0 {
		return p, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
}

// SubmitOrder fills the order immediately.
func (b *SimulatorBroker) SubmitOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	price := order.LimitPrice
	if price == 0 {
		price = order.StopPrice
	}
	if price == 0 {
		price = b.marks[order.Symbol]
	}
	if price == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPrice, order.Symbol)
	}
	if order.Qty <= 0 {
		return nil, fmt.Errorf("%w: qty %v", ErrUnsupportedOrder, order.Qty)
	}

	cost := price * order.Qty
	pos := b.positions[order.Symbol]
	switch order.Side {
	case domain.OrderSideBuy:
		if cost > b.cash {
			return nil, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientFunds, cost, b.cash)
		}
		b.cash -= cost
		if pos == nil {
			pos = &domain.Position{Symbol: order.Symbol, ProductID: order.Symbol, Side: domain.PositionSideLong}
			b.positions[order.Symbol] = pos
		}
		pos.AvgPrice = (pos.AvgPrice*pos.Qty + cost) / (pos.Qty + order.Qty)
		pos.Qty += order.Qty
	case domain.OrderSideSell:
		if pos == nil || pos.Qty < order.Qty {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientPosition, order.Symbol)
		}
		b.cash += cost
		pos.Qty -= order.Qty
		if pos.Qty == 0 {
			delete(b.positions, order.Symbol)
			pos = nil
		}
	default:
		return nil, fmt.Errorf("%w: side %q", ErrUnsupportedOrder, order.Side)
	}

	b.marks[order.Symbol] = price
	if pos != nil {
		pos.Price = price
		pos.MarketValue = price * pos.Qty
	}

	b.seq++
	filled := *order
	filled.BrokerOrderID = "sim-" + strconv.Itoa(b.seq)
	filled.Status = domain.OrderStatusFilled
	b.orders[filled.BrokerOrderID] = &filled
	return &filled, nil
}

// CancelOrder always fails for known orders since every order fills on
// submit.
func (b *SimulatorBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("simulator: unknown order %s", orderID)
	}
	return fmt.Errorf("simulator: order %s already %s", orderID, o.Status)
}

// GetPositions returns copies of all simulated positions.
func (b *SimulatorBroker) GetPositions(_ context.Context) ([]domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	positions := make([]domain.Position, 0, len(b.positions))
	for _, p := range b.positions {
		positions = append(positions, *p)
	}
	return positions, nil
}

// GetAccount returns cash plus marked position value.
func (b *SimulatorBroker) GetAccount(_ context.Context) (*domain.AccountInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	equity := b.cash
	for _, p := range b.positions {
		equity += p.MarketValue
	}
	return &domain.AccountInfo{
		Cash:        b.cash,
		Equity:      equity,
		BuyingPower: b.cash,
		CashByFund:  map[string]float64{"sim": b.cash},
	}, nil
}
