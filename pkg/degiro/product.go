package degiro

import (
	"context"
	"net/http"
	"strconv"
)

const (
	defaultSearchLimit = 7
)

// SearchOptions parameterises SearchProduct. Zero values mean "use the
// default": ProductType all, Limit 7, Offset 0. SortColumn and SortType are
// sent only when set.
type SearchOptions struct {
	Text        string
	ProductType ProductType
	SortColumn  string
	SortType    string
	Limit       int
	Offset      int
}

// SearchResult is the product lookup response. Candidates are in server
// ranking order.
type SearchResult struct {
	Data []Product `json:"data"`
}

// SearchProduct looks up tradable products by free text.
func (c *Client) SearchProduct(ctx context.Context, opts SearchOptions) (SearchResult, error) {
	s, err := c.authenticated()
	if err != nil {
		return SearchResult{}, err
	}
	typeID, err := productTypeID(opts.ProductType)
	if err != nil {
		return SearchResult{}, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	q := sessionQuery(s).
		set("searchText", opts.Text).
		optional("productTypeId", typeID).
		optional("sortColumns", opts.SortColumn).
		optional("sortTypes", opts.SortType).
		set("limit", strconv.Itoa(limit)).
		set("offset", strconv.Itoa(opts.Offset))

	var out SearchResult
	u := c.baseURL + productSearchPath + "products/lookup?" + q.encode()
	if err := c.getJSON(ctx, "products/lookup", u, &out); err != nil {
		return SearchResult{}, err
	}
	return out, nil
}

// ProductsByIDs fetches product details for the given ids, keyed by id.
func (c *Client) ProductsByIDs(ctx context.Context, ids []string) (map[string]Product, error) {
	s, err := c.authenticated()
	if err != nil {
		return nil, err
	}
	u := c.baseURL + productSearchPath + "products/info?" + sessionQuery(s).encode()

	status, data, err := c.sendJSON(ctx, "products/info", http.MethodPost, u, ids)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data map[string]Product `json:"data"`
	}
	if err := decode("products/info", status, data, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, &MalformedResponseError{Field: "data"}
	}
	return out.Data, nil
}
