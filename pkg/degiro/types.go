package degiro

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an opaque server identifier. The API sends some identifiers as JSON
// strings and others as numbers; both decode to the same string form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Action is the order direction.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// OrderType is the DeGiro numeric order type.
type OrderType int

const (
	Limited     OrderType = 0
	StopLimited OrderType = 1
	MarketOrder OrderType = 2
	StopLoss    OrderType = 3
)

func (t OrderType) String() string {
	switch t {
	case Limited:
		return "limited"
	case StopLimited:
		return "stop-limited"
	case MarketOrder:
		return "market"
	case StopLoss:
		return "stop-loss"
	default:
		return "order-type(" + strconv.Itoa(int(t)) + ")"
	}
}

// needsPrice reports whether the order type carries a limit price.
func (t OrderType) needsPrice() bool { return t == Limited || t == StopLimited }

// needsStopPrice reports whether the order type carries a stop price.
func (t OrderType) needsStopPrice() bool { return t == StopLimited || t == StopLoss }

// TimeType is how long an order stays in the book.
type TimeType int

const (
	Day       TimeType = 1
	Permanent TimeType = 3
)

// ProductType names a product class for searching.
type ProductType string

const (
	ProductTypeAll               ProductType = "all"
	ProductTypeShares            ProductType = "shares"
	ProductTypeBonds             ProductType = "bonds"
	ProductTypeFutures           ProductType = "futures"
	ProductTypeOptions           ProductType = "options"
	ProductTypeInvestmentFunds   ProductType = "investmentFunds"
	ProductTypeLeveragedProducts ProductType = "leveragedProducts"
	ProductTypeETFs              ProductType = "etfs"
	ProductTypeCFDs              ProductType = "cfds"
	ProductTypeWarrants          ProductType = "warrants"
)

var productTypeIDs = map[ProductType]int{
	ProductTypeShares:            1,
	ProductTypeBonds:             2,
	ProductTypeFutures:           7,
	ProductTypeOptions:           8,
	ProductTypeInvestmentFunds:   13,
	ProductTypeLeveragedProducts: 14,
	ProductTypeETFs:              131,
	ProductTypeCFDs:              535,
	ProductTypeWarrants:          536,
}

// productTypeID returns the query value for t. "all" and the empty type map
// to "" so the parameter is omitted.
func productTypeID(t ProductType) (string, error) {
	if t == "" || t == ProductTypeAll {
		return "", nil
	}
	id, ok := productTypeIDs[t]
	if !ok {
		return "", fmt.Errorf("unknown product type %q", t)
	}
	return strconv.Itoa(id), nil
}

// OrderRequest is the body sent to both the check and confirm endpoints.
type OrderRequest struct {
	BuySell   Action    `json:"buySell"`
	OrderType OrderType `json:"orderType"`
	ProductID ID        `json:"productId"`
	Size      float64   `json:"size"`
	TimeType  TimeType  `json:"timeType"`
	Price     *float64  `json:"price,omitempty"`
	StopPrice *float64  `json:"stopPrice,omitempty"`
}

// Validate checks that the fields required by the order type are present.
func (o OrderRequest) Validate() error {
	switch {
	case o.BuySell != Buy && o.BuySell != Sell:
		return fmt.Errorf("%w: action %q", ErrInvalidOrder, o.BuySell)
	case o.ProductID == "":
		return fmt.Errorf("%w: missing product id", ErrInvalidOrder)
	case o.Size <= 0:
		return fmt.Errorf("%w: size must be positive", ErrInvalidOrder)
	case o.TimeType != Day && o.TimeType != Permanent:
		return fmt.Errorf("%w: time type %d", ErrInvalidOrder, o.TimeType)
	case o.OrderType.needsPrice() && o.Price == nil:
		return fmt.Errorf("%w: %s order requires a price", ErrInvalidOrder, o.OrderType)
	case o.OrderType.needsStopPrice() && o.StopPrice == nil:
		return fmt.Errorf("%w: %s order requires a stop price", ErrInvalidOrder, o.OrderType)
	}
	return nil
}

// OrderConfirmation pairs a checked order with the id needed to confirm it.
// It is single use: confirming the same confirmation twice is not safe.
type OrderConfirmation struct {
	Order          OrderRequest
	ConfirmationID string
}

// OrderResult is the outcome of a confirmed order.
type OrderResult struct {
	OrderID string
}

// Product is a catalog entry returned by a product search. Raw keeps every
// field the server sent.
type Product struct {
	ID            ID      `json:"id"`
	Name          string  `json:"name"`
	ISIN          string  `json:"isin"`
	Symbol        string  `json:"symbol"`
	ProductType   string  `json:"productType"`
	ProductTypeID int     `json:"productTypeId"`
	Currency      string  `json:"currency"`
	ExchangeID    ID      `json:"exchangeId"`
	Tradable      bool    `json:"tradable"`
	ClosePrice    float64 `json:"closePrice"`

	Raw map[string]any `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the full object in Raw.
func (p *Product) UnmarshalJSON(b []byte) error {
	type plain Product
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if err := json.Unmarshal(b, &v.Raw); err != nil {
		return err
	}
	*p = Product(v)
	return nil
}

// UpdateField is one name/value pair of an update entry.
type UpdateField struct {
	Name    string `json:"name"`
	Value   any    `json:"value"`
	IsAdded bool   `json:"isAdded,omitempty"`
}

// UpdateEntry is a row of the account update endpoint (a position, a cash
// fund or an open order). Raw keeps every field the server sent, including
// ones not decoded into the struct.
type UpdateEntry struct {
	ID      ID            `json:"id"`
	Name    string        `json:"name"`
	IsAdded bool          `json:"isAdded"`
	Value   []UpdateField `json:"value"`

	Raw map[string]any `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the full object in Raw.
func (e *UpdateEntry) UnmarshalJSON(b []byte) error {
	type plain UpdateEntry
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if err := json.Unmarshal(b, &v.Raw); err != nil {
		return err
	}
	*e = UpdateEntry(v)
	return nil
}

// Fields flattens the entry's name/value list.
func (e UpdateEntry) Fields() map[string]any {
	out := make(map[string]any, len(e.Value))
	for _, f := range e.Value {
		out[f.Name] = f.Value
	}
	return out
}

// CashFund is one currency's cash fund, flattened to field name → value.
type CashFund map[string]any

// CashFunds lists the account's cash funds.
type CashFunds struct {
	Funds []CashFund
}

// Portfolio lists the account's positions in server order.
type Portfolio struct {
	Positions []UpdateEntry
}

// Orders lists the account's open orders in server order.
type Orders struct {
	Orders []UpdateEntry
}
