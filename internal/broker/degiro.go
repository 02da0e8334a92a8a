package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"degiro/internal/domain"
	"degiro/pkg/degiro"
)

// Compile-time interface checks.
var (
	_ Broker = (*DegiroBroker)(nil)
	_ Quoter = (*DegiroBroker)(nil)
)

// DegiroBroker implements the Broker interface on top of an authenticated
// degiro.Client. Order symbols are resolved through product search.
type DegiroBroker struct {
	client      *degiro.Client
	productType degiro.ProductType
}

// NewDegiroBroker wraps client. productType narrows symbol lookups; pass ""
// to search all product types.
func NewDegiroBroker(client *degiro.Client, productType degiro.ProductType) *DegiroBroker {
	return &DegiroBroker{client: client, productType: productType}
}

// Name returns "degiro".
func (b *DegiroBroker) Name() string {
	return "degiro"
}

// SubmitOrder runs the search, check and confirm workflow for the order.
func (b *DegiroBroker) SubmitOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	opts, err := b.orderOptions(order)
	if err != nil {
		return nil, err
	}

	var res degiro.OrderResult
	switch order.Side {
	case domain.OrderSideBuy:
		res, err = b.client.Buy(ctx, opts)
	case domain.OrderSideSell:
		res, err = b.client.Sell(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: side %q", ErrUnsupportedOrder, order.Side)
	}
	if err != nil {
		return nil, err
	}

	out := *order
	out.BrokerOrderID = res.OrderID
	out.Status = domain.OrderStatusAccepted
	return &out, nil
}

func (b *DegiroBroker) orderOptions(order *domain.Order) (degiro.OrderOptions, error) {
	opts := degiro.OrderOptions{
		Symbol:      order.Symbol,
		ProductType: b.productType,
		Size:        order.Qty,
	}

	switch order.Type {
	case domain.OrderTypeMarket:
		opts.OrderType = degiro.MarketOrder
	case domain.OrderTypeLimit:
		opts.OrderType = degiro.Limited
	case domain.OrderTypeStop:
		opts.OrderType = degiro.StopLoss
	case domain.OrderTypeStopLimit:
		opts.OrderType = degiro.StopLimited
	default:
		return opts, fmt.Errorf("%w: type %q", ErrUnsupportedOrder, order.Type)
	}

	switch order.TimeInForce {
	case domain.TimeInForceDay, "":
		opts.TimeType = degiro.Day
	case domain.TimeInForceGTC:
		opts.TimeType = degiro.Permanent
	default:
		return opts, fmt.Errorf("%w: time in force %q", ErrUnsupportedOrder, order.TimeInForce)
	}

	if order.LimitPrice != 0 {
		p := order.LimitPrice
		opts.Price = &p
	}
	if order.StopPrice != 0 {
		p := order.StopPrice
		opts.StopPrice = &p
	}
	return opts, nil
}

// Quote returns the last close price of the product an order for symbol
// would resolve to.
func (b *DegiroBroker) Quote(ctx context.Context, symbol string) (float64, error) {
	res, err := b.client.SearchProduct(ctx, degiro.SearchOptions{
		Text:        symbol,
		ProductType: b.productType,
		Limit:       1,
	})
	if err != nil {
		return 0, err
	}
	if len(res.Data) == 0 {
		return 0, fmt.Errorf("%w: %q", degiro.ErrProductNotFound, symbol)
	}
	if p := res.Data[0].ClosePrice; p > 0 {
		return p, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
}

// CancelOrder deletes the open order with the given DeGiro order id.
func (b *DegiroBroker) CancelOrder(ctx context.Context, orderID string) error {
	return b.client.DeleteOrder(ctx, orderID)
}

// GetPositions reads the portfolio and resolves product ids to symbols.
// Cash rows and closed positions are skipped.
func (b *DegiroBroker) GetPositions(ctx context.Context) ([]domain.Position, error) {
	pf, err := b.client.Portfolio(ctx)
	if err != nil {
		return nil, err
	}

	var positions []domain.Position
	var ids []string
	for _, entry := range pf.Positions {
		f := entry.Fields()
		if t, _ := f["positionType"].(string); t != "" && t != "PRODUCT" {
			continue
		}
		size := number(f["size"])
		if size == 0 {
			continue
		}
		id := string(entry.ID)
		if v, ok := f["id"]; ok {
			id = text(v)
		}

		pos := domain.Position{
			Symbol:      id,
			ProductID:   id,
			Qty:         size,
			Side:        domain.PositionSideLong,
			AvgPrice:    number(f["breakEvenPrice"]),
			Price:       number(f["price"]),
			MarketValue: number(f["value"]),
		}
		if size < 0 {
			pos.Side = domain.PositionSideShort
			pos.Qty = -size
		}
		positions = append(positions, pos)
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return positions, nil
	}

	products, err := b.client.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving products: %w", err)
	}
	for i := range positions {
		p, ok := products[positions[i].ProductID]
		if !ok {
			continue
		}
		if p.Symbol != "" {
			positions[i].Symbol = p.Symbol
		}
		positions[i].Currency = p.Currency
	}
	return positions, nil
}

// GetAccount sums the cash funds and the portfolio's market value. Funds are
// reported in their own currencies, so Cash and Equity are only meaningful
// for single-currency accounts.
func (b *DegiroBroker) GetAccount(ctx context.Context) (*domain.AccountInfo, error) {
	funds, err := b.client.CashFunds(ctx)
	if err != nil {
		return nil, err
	}

	info := &domain.AccountInfo{CashByFund: make(map[string]float64, len(funds.Funds))}
	for _, fund := range funds.Funds {
		v := number(fund["value"])
		info.CashByFund[text(fund["id"])] = v
		info.Cash += v
	}

	pf, err := b.client.Portfolio(ctx)
	if err != nil {
		return nil, err
	}
	info.Equity = info.Cash
	for _, entry := range pf.Positions {
		f := entry.Fields()
		if t, _ := f["positionType"].(string); t == "CASH" {
			continue
		}
		info.Equity += number(f["value"])
	}
	info.BuyingPower = info.Cash
	return info, nil
}

// number coerces a loosely typed update value to float64.
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
