package broker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"degiro/internal/domain"
	"degiro/pkg/degiro"
)

func TestBrokerNames(t *testing.T) {
	tests := []struct {
		b    Broker
		want string
	}{
		{NewAlpacaBroker("key", "secret", "https://paper-api.alpaca.markets"), "alpaca"},
		{NewSimulatorBroker(0), "simulator"},
		{NewDegiroBroker(degiro.NewClient(), ""), "degiro"},
	}
	for _, tt := range tests {
		if got := tt.b.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// DeGiro
// ---------------------------------------------------------------------------

const (
	updatePath = "/trading/secure/v5/update/42"
	lookupPath = "/product_search/secure/v5/products/lookup"
	infoPath   = "/product_search/secure/v5/products/info"
	checkPath  = "/trading/secure/v5/checkOrder"
)

const portfolioBody = `{"portfolio":{"value":[
	{"id":"331868","value":[{"name":"id","value":"331868"},{"name":"positionType","value":"PRODUCT"},{"name":"size","value":10},{"name":"price","value":190.5},{"name":"value","value":1905},{"name":"breakEvenPrice","value":150}]},
	{"id":"EUR","value":[{"name":"id","value":"EUR"},{"name":"positionType","value":"CASH"},{"name":"size","value":12.5},{"name":"value","value":12.5}]},
	{"id":"96008","value":[{"name":"id","value":"96008"},{"name":"positionType","value":"PRODUCT"},{"name":"size","value":0},{"name":"value","value":0}]}
]}}`

const cashBody = `{"cashFunds":{"value":[
	{"id":"2","value":[{"name":"id","value":2},{"name":"currencyCode","value":"EUR"},{"name":"value","value":1000}]},
	{"id":"9","value":[{"name":"id","value":9},{"name":"currencyCode","value":"USD"},{"name":"value","value":250.5}]}
]}}`

// degiroServer routes the DeGiro endpoints a DegiroBroker uses. Paths are
// matched with the ";jsessionid=..." suffix removed.
func degiroServer(t *testing.T, routes map[string]http.HandlerFunc) *degiro.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, _, _ := strings.Cut(r.URL.Path, ";")
		h, ok := routes[path]
		if !ok {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return degiro.NewClient(
		degiro.WithBaseURL(srv.URL),
		degiro.WithSession(degiro.Session{Token: "tok", AccountID: 42}),
	)
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, body)
	}
}

// updateHandler answers the update endpoint by requested section.
func updateHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Has("portfolio"):
			io.WriteString(w, portfolioBody)
		case q.Has("cashFunds"):
			io.WriteString(w, cashBody)
		default:
			t.Errorf("unexpected update query %s", r.URL.RawQuery)
		}
	}
}

func TestDegiroBrokerGetPositions(t *testing.T) {
	var infoIDs []string
	client := degiroServer(t, map[string]http.HandlerFunc{
		updatePath: updateHandler(t),
		infoPath: func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&infoIDs); err != nil {
				t.Errorf("decoding products/info body: %v", err)
			}
			io.WriteString(w, `{"data":{"331868":{"id":"331868","symbol":"AAPL","currency":"USD"}}}`)
		},
	})

	positions, err := NewDegiroBroker(client, "").GetPositions(context.Background())
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("GetPositions returned %d positions, want 1: %+v", len(positions), positions)
	}
	p := positions[0]
	if p.Symbol != "AAPL" || p.ProductID != "331868" || p.Currency != "USD" {
		t.Errorf("position identity = %s/%s/%s", p.Symbol, p.ProductID, p.Currency)
	}
	if p.Qty != 10 || p.Price != 190.5 || p.MarketValue != 1905 || p.AvgPrice != 150 {
		t.Errorf("position numbers = %+v", p)
	}
	if len(infoIDs) != 1 || infoIDs[0] != "331868" {
		t.Errorf("products/info ids = %v, want [331868]", infoIDs)
	}
}

func TestDegiroBrokerGetAccount(t *testing.T) {
	client := degiroServer(t, map[string]http.HandlerFunc{updatePath: updateHandler(t)})

	info, err := NewDegiroBroker(client, "").GetAccount(context.Background())
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if info.Cash != 1250.5 {
		t.Errorf("Cash = %v, want 1250.5", info.Cash)
	}
	// Cash rows in the portfolio are not counted twice.
	if info.Equity != 1250.5+1905 {
		t.Errorf("Equity = %v, want %v", info.Equity, 1250.5+1905)
	}
	if info.CashByFund["2"] != 1000 || info.CashByFund["9"] != 250.5 {
		t.Errorf("CashByFund = %v", info.CashByFund)
	}
}

func TestDegiroBrokerSubmitOrder(t *testing.T) {
	var checked map[string]any
	var lookupType string
	client := degiroServer(t, map[string]http.HandlerFunc{
		lookupPath: func(w http.ResponseWriter, r *http.Request) {
			lookupType = r.URL.Query().Get("productTypeId")
			io.WriteString(w, `{"data":[{"id":"331868","symbol":"AAPL"}]}`)
		},
		checkPath: func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&checked); err != nil {
				t.Errorf("decoding checkOrder body: %v", err)
			}
			io.WriteString(w, `{"status":0,"confirmationId":"C1"}`)
		},
		"/trading/secure/v5/order/C1": respond(`{"status":0,"orderId":"O77"}`),
	})

	order := &domain.Order{
		ID:          "local-1",
		Symbol:      "AAPL",
		Side:        domain.OrderSideBuy,
		Type:        domain.OrderTypeLimit,
		TimeInForce: domain.TimeInForceGTC,
		Qty:         3,
		LimitPrice:  180,
	}
	got, err := NewDegiroBroker(client, degiro.ProductTypeShares).SubmitOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if got.BrokerOrderID != "O77" || got.Status != domain.OrderStatusAccepted {
		t.Errorf("SubmitOrder = %s/%s, want O77/accepted", got.BrokerOrderID, got.Status)
	}
	if order.BrokerOrderID != "" {
		t.Error("SubmitOrder modified the caller's order")
	}
	if lookupType != "1" {
		t.Errorf("productTypeId = %q, want %q", lookupType, "1")
	}
	want := map[string]any{
		"buySell":   "BUY",
		"orderType": float64(0),
		"productId": "331868",
		"size":      float64(3),
		"timeType":  float64(3),
		"price":     float64(180),
	}
	for k, v := range want {
		if checked[k] != v {
			t.Errorf("checkOrder %s = %v, want %v", k, checked[k], v)
		}
	}
	if _, ok := checked["stopPrice"]; ok {
		t.Error("checkOrder body has stopPrice for a limit order")
	}
}

func TestDegiroBrokerUnsupportedOrder(t *testing.T) {
	b := NewDegiroBroker(degiro.NewClient(), "")
	_, err := b.SubmitOrder(context.Background(), &domain.Order{Symbol: "X", Side: domain.OrderSideBuy, Type: "trailing", Qty: 1})
	if !errors.Is(err, ErrUnsupportedOrder) {
		t.Errorf("SubmitOrder error = %v, want ErrUnsupportedOrder", err)
	}
}

func TestDegiroBrokerCancelOrder(t *testing.T) {
	var method string
	client := degiroServer(t, map[string]http.HandlerFunc{
		"/trading/secure/v5/order/O77": func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			io.WriteString(w, `{"status":0}`)
		},
	})
	if err := NewDegiroBroker(client, "").CancelOrder(context.Background(), "O77"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if method != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", method)
	}
}

// ---------------------------------------------------------------------------
// Simulator
// ---------------------------------------------------------------------------

func TestSimulatorBuySell(t *testing.T) {
	ctx := context.Background()
	b := NewSimulatorBroker(1000)

	buy := &domain.Order{ID: "1", Symbol: "AAPL", Side: domain.OrderSideBuy, Type: domain.OrderTypeLimit, Qty: 4, LimitPrice: 100}
	filled, err := b.SubmitOrder(ctx, buy)
	if err != nil {
		t.Fatalf("SubmitOrder(buy): %v", err)
	}
	if filled.Status != domain.OrderStatusFilled || filled.BrokerOrderID == "" {
		t.Errorf("buy fill = %s/%q", filled.Status, filled.BrokerOrderID)
	}

	b.SetPrice("AAPL", 110)
	acct, err := b.GetAccount(ctx)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acct.Cash != 600 || acct.Equity != 600+440 {
		t.Errorf("account = cash %v equity %v, want 600/1040", acct.Cash, acct.Equity)
	}

	sell := &domain.Order{ID: "2", Symbol: "AAPL", Side: domain.OrderSideSell, Type: domain.OrderTypeMarket, Qty: 4}
	if _, err := b.SubmitOrder(ctx, sell); err != nil {
		t.Fatalf("SubmitOrder(sell): %v", err)
	}
	positions, _ := b.GetPositions(ctx)
	if len(positions) != 0 {
		t.Errorf("positions after full sell = %+v", positions)
	}
	acct, _ = b.GetAccount(ctx)
	if acct.Cash != 1040 {
		t.Errorf("Cash after sell = %v, want 1040", acct.Cash)
	}
}

func TestSimulatorRejects(t *testing.T) {
	ctx := context.Background()
	b := NewSimulatorBroker(100)

	tests := []struct {
		name  string
		order domain.Order
		want  error
	}{
		{"no price", domain.Order{Symbol: "MSFT", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Qty: 1}, ErrNoPrice},
		{"too expensive", domain.Order{Symbol: "MSFT", Side: domain.OrderSideBuy, Type: domain.OrderTypeLimit, Qty: 2, LimitPrice: 60}, ErrInsufficientFunds},
		{"nothing to sell", domain.Order{Symbol: "MSFT", Side: domain.OrderSideSell, Type: domain.OrderTypeLimit, Qty: 1, LimitPrice: 10}, ErrInsufficientPosition},
	}
	for _, tt := range tests {
		_, err := b.SubmitOrder(ctx, &tt.order)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestSimulatorCancelFilled(t *testing.T) {
	ctx := context.Background()
	b := NewSimulatorBroker(100)
	o, err := b.SubmitOrder(ctx, &domain.Order{Symbol: "X", Side: domain.OrderSideBuy, Type: domain.OrderTypeLimit, Qty: 1, LimitPrice: 1})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if err := b.CancelOrder(ctx, o.BrokerOrderID); err == nil {
		t.Error("CancelOrder of a filled order should fail")
	}
}

func TestDegiroBrokerQuote(t *testing.T) {
	client := degiroServer(t, map[string]http.HandlerFunc{
		lookupPath: func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("searchText") {
			case "AAPL":
				io.WriteString(w, `{"data":[{"id":"331868","symbol":"AAPL","closePrice":189.25}]}`)
			case "NOCLOSE":
				io.WriteString(w, `{"data":[{"id":"1","symbol":"NOCLOSE"}]}`)
			default:
				io.WriteString(w, `{"data":[]}`)
			}
		},
	})
	b := NewDegiroBroker(client, degiro.ProductTypeShares)
	ctx := context.Background()

	price, err := b.Quote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Quote(AAPL): %v", err)
	}
	if price != 189.25 {
		t.Errorf("Quote(AAPL) = %v, want 189.25", price)
	}
	if _, err := b.Quote(ctx, "NOCLOSE"); !errors.Is(err, ErrNoPrice) {
		t.Errorf("Quote(NOCLOSE) error = %v, want ErrNoPrice", err)
	}
	if _, err := b.Quote(ctx, "MISSING"); !errors.Is(err, degiro.ErrProductNotFound) {
		t.Errorf("Quote(MISSING) error = %v, want ErrProductNotFound", err)
	}
}

func TestSimulatorQuote(t *testing.T) {
	b := NewSimulatorBroker(0)
	if _, err := b.Quote(context.Background(), "AAPL"); !errors.Is(err, ErrNoPrice) {
		t.Errorf("Quote without mark error = %v, want ErrNoPrice", err)
	}
	b.SetPrice("AAPL", 101.5)
	price, err := b.Quote(context.Background(), "AAPL")
	if err != nil || price != 101.5 {
		t.Errorf("Quote = %v, %v, want 101.5", price, err)
	}
}
