package degiro

import (
	"context"
	"encoding/json"
)

// Fields the server repeats on every cash fund that carry no balance
// information.
var cashFundDropped = []string{"handling", "currencyCode"}

// CashFunds returns the account's cash funds.
func (c *Client) CashFunds(ctx context.Context) (CashFunds, error) {
	entries, err := c.readSection(ctx, "cashFunds")
	if err != nil {
		return CashFunds{}, err
	}

	funds := make([]CashFund, 0, len(entries))
	for _, e := range entries {
		fund := CashFund(e.Fields())
		for _, name := range cashFundDropped {
			delete(fund, name)
		}
		funds = append(funds, fund)
	}
	return CashFunds{Funds: funds}, nil
}

// Portfolio returns the account's positions.
func (c *Client) Portfolio(ctx context.Context) (Portfolio, error) {
	entries, err := c.readSection(ctx, "portfolio")
	if err != nil {
		return Portfolio{}, err
	}
	return Portfolio{Positions: entries}, nil
}

// Orders returns the account's open orders.
func (c *Client) Orders(ctx context.Context) (Orders, error) {
	entries, err := c.readSection(ctx, "orders")
	if err != nil {
		return Orders{}, err
	}
	return Orders{Orders: entries}, nil
}

// readSection requests a single update section and returns its entries. The
// section must be present and its value must be a list.
func (c *Client) readSection(ctx context.Context, name string) ([]UpdateEntry, error) {
	data, err := c.readData(ctx, newQuery().set(name, "0"))
	if err != nil {
		return nil, err
	}

	raw, ok := data[name]
	if !ok {
		return nil, &MalformedResponseError{Field: name}
	}
	var section struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &section); err != nil {
		return nil, &MalformedResponseError{Field: name}
	}

	var entries []UpdateEntry
	if err := json.Unmarshal(section.Value, &entries); err != nil || entries == nil {
		return nil, &MalformedResponseError{Field: name + ".value"}
	}
	return entries, nil
}
