package degiro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ---------------------------------------------------------------------------
// Query encoding
// ---------------------------------------------------------------------------

// query collects request parameters. Optional parameters with no value are
// left out entirely; the API treats an empty parameter differently from a
// missing one.
type query struct {
	values url.Values
}

func newQuery() *query {
	return &query{values: url.Values{}}
}

func (q *query) set(key, value string) *query {
	q.values.Set(key, value)
	return q
}

// optional sets key only when value is non-empty.
func (q *query) optional(key, value string) *query {
	if value != "" {
		q.values.Set(key, value)
	}
	return q
}

func (q *query) encode() string {
	return q.values.Encode()
}

// sessionQuery is the intAccount/sessionId pair most secure endpoints expect.
func sessionQuery(s Session) *query {
	return newQuery().
		set("intAccount", strconv.FormatInt(s.AccountID, 10)).
		set("sessionId", s.Token)
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// do sends a request and returns the raw response body. endpoint names the
// call in logs so the session token never reaches them.
func (c *Client) do(ctx context.Context, endpoint, method, rawURL, contentType string, body io.Reader) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, nil, fmt.Errorf("building %s request: %w", endpoint, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}

	c.log.Debug("request", "endpoint", endpoint, "method", method,
		"status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, data, nil
}

// getJSON issues a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	resp, data, err := c.do(ctx, endpoint, http.MethodGet, rawURL, "", nil)
	if err != nil {
		return err
	}
	return decode(endpoint, resp.StatusCode, data, out)
}

// sendJSON issues a request with a JSON body and returns the raw response.
func (c *Client) sendJSON(ctx context.Context, endpoint, method, rawURL string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding %s body: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}
	resp, data, err := c.do(ctx, endpoint, method, rawURL, "application/json;charset=UTF-8", body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

func decode(endpoint string, status int, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response (HTTP %d): %w", endpoint, status, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

// readData fetches the account update endpoint. The payload is returned as
// top-level sections for the caller to interpret; no envelope check applies.
func (c *Client) readData(ctx context.Context, q *query) (map[string]json.RawMessage, error) {
	s, err := c.authenticated()
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s%supdate/%d;jsessionid=%s?%s",
		c.baseURL, tradingPath, s.AccountID, s.Token, q.encode())

	var out map[string]json.RawMessage
	if err := c.getJSON(ctx, "update", u, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// writeAction sends payload to a trading endpoint and runs the response
// through checkStatus. On success the response body is decoded into out
// when out is non-nil.
func (c *Client) writeAction(ctx context.Context, method, path string, payload, out any) error {
	s, err := c.authenticated()
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s%s%s;jsessionid=%s?%s",
		c.baseURL, tradingPath, path, s.Token, sessionQuery(s).encode())

	status, data, err := c.sendJSON(ctx, path, method, u, payload)
	if err != nil {
		return err
	}
	body, err := checkStatus(path, status, data)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(path, status, body, out)
}

// envelope is the outcome marker every write endpoint returns.
type envelope struct {
	Status  *int   `json:"status"`
	Message string `json:"message"`
}

// checkStatus is the success gate for trading actions: status 0 returns the
// body unchanged, anything else (including a missing status) becomes an
// *APIError carrying the server message.
func checkStatus(endpoint string, httpStatus int, body []byte) ([]byte, error) {
	var env envelope
	if err := decode(endpoint, httpStatus, body, &env); err != nil {
		return nil, err
	}
	if env.Status == nil {
		return nil, &APIError{Status: -1, Message: env.Message}
	}
	if *env.Status != 0 {
		return nil, &APIError{Status: *env.Status, Message: env.Message}
	}
	return body, nil
}
