package broker

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"degiro/internal/domain"
)

// Compile-time interface checks.
var (
	_ Broker = (*AlpacaBroker)(nil)
	_ Quoter = (*AlpacaBroker)(nil)
)

// AlpacaBroker implements the Broker interface using the Alpaca brokerage API.
// Quotes come from the market data API's latest trade.
type AlpacaBroker struct {
	client *alpaca.Client
	data   *marketdata.Client
}

// NewAlpacaBroker creates a new AlpacaBroker configured with the given
// API credentials and base URL.
func NewAlpacaBroker(apiKey, apiSecret, baseURL string) *AlpacaBroker {
	return &AlpacaBroker{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
	}
}

// Quote returns the price of the latest trade in symbol.
func (b *AlpacaBroker) Quote(_ context.Context, symbol string) (float64, error) {
	trade, err := b.data.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return 0, fmt.Errorf("GetLatestTrade: %w", err)
	}
	if trade == nil || trade.Price <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
	}
	return trade.Price, nil
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string {
	return "alpaca"
}

// SubmitOrder sends an order to the Alpaca API for execution. The local
// order id is passed as the client order id.
func (b *AlpacaBroker) SubmitOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	qty := decimal.NewFromFloat(order.Qty)
	tif := order.TimeInForce
	if tif == "" {
		tif = domain.TimeInForceDay
	}
	req := alpaca.PlaceOrderRequest{
		Symbol:        order.Symbol,
		Qty:           &qty,
		Side:          alpaca.Side(order.Side),
		Type:          alpaca.OrderType(order.Type),
		TimeInForce:   alpaca.TimeInForce(tif),
		ClientOrderID: order.ID,
	}
	if order.LimitPrice != 0 {
		p := decimal.NewFromFloat(order.LimitPrice)
		req.LimitPrice = &p
	}
	if order.StopPrice != 0 {
		p := decimal.NewFromFloat(order.StopPrice)
		req.StopPrice = &p
	}

	placed, err := b.client.PlaceOrder(req)
	if err != nil {
		return nil, fmt.Errorf("PlaceOrder: %w", err)
	}

	out := *order
	out.BrokerOrderID = placed.ID
	out.Status = domain.OrderStatusAccepted
	return &out, nil
}

// CancelOrder requests cancellation of an open order via the Alpaca API.
func (b *AlpacaBroker) CancelOrder(_ context.Context, orderID string) error {
	if err := b.client.CancelOrder(orderID); err != nil {
		return fmt.Errorf("CancelOrder: %w", err)
	}
	return nil
}

// GetPositions returns all current positions from the Alpaca account.
func (b *AlpacaBroker) GetPositions(_ context.Context) ([]domain.Position, error) {
	raw, err := b.client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("GetPositions: %w", err)
	}

	positions := make([]domain.Position, 0, len(raw))
	for _, p := range raw {
		pos := domain.Position{
			Symbol:      p.Symbol,
			ProductID:   p.AssetID,
			Qty:         p.Qty.Abs().InexactFloat64(),
			Side:        domain.PositionSideLong,
			AvgPrice:    p.AvgEntryPrice.InexactFloat64(),
			Price:       optFloat(p.CurrentPrice),
			MarketValue: optFloat(p.MarketValue),
			Currency:    "USD",
		}
		if p.Side == "short" {
			pos.Side = domain.PositionSideShort
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// GetAccount returns the current account information from the Alpaca API.
func (b *AlpacaBroker) GetAccount(_ context.Context) (*domain.AccountInfo, error) {
	acct, err := b.client.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	cash := acct.Cash.InexactFloat64()
	currency := acct.Currency
	if currency == "" {
		currency = "USD"
	}
	return &domain.AccountInfo{
		Cash:        cash,
		Equity:      acct.Equity.InexactFloat64(),
		BuyingPower: acct.BuyingPower.InexactFloat64(),
		CashByFund:  map[string]float64{currency: cash},
	}, nil
}

func optFloat(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	return d.InexactFloat64()
}
