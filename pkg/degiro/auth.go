package degiro

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Credentials are the username and password used by Login. They are not
// kept by the client.
type Credentials struct {
	Username string
	Password string
}

// Login authenticates with the given credentials, resolves the account
// number and stores the resulting session on the client.
//
// The session is published only after both steps succeed, so a failed Login
// leaves the client unauthenticated (or with its previous session).
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	form := url.Values{}
	form.Set("j_username", creds.Username)
	form.Set("j_password", creds.Password)

	resp, _, err := c.do(ctx, "login", http.MethodPost, c.baseURL+loginPath,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, err
	}

	token := ""
	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookie && ck.Value != "" {
			token = ck.Value
			break
		}
	}
	if token == "" {
		return Session{}, fmt.Errorf("%w: no %s cookie in response (HTTP %d)",
			ErrAuthentication, sessionCookie, resp.StatusCode)
	}

	accountID, err := c.fetchAccountID(ctx, token)
	if err != nil {
		return Session{}, fmt.Errorf("resolving account: %w", err)
	}

	s := Session{Token: token, AccountID: accountID}
	c.session = &s
	c.log.Info("logged in", "account", accountID)
	return s, nil
}

type clientInfoResponse struct {
	Data struct {
		IntAccount *int64 `json:"intAccount"`
	} `json:"data"`
}

func (c *Client) fetchAccountID(ctx context.Context, token string) (int64, error) {
	var resp clientInfoResponse
	if err := c.getJSON(ctx, "client", c.clientURL(token), &resp); err != nil {
		return 0, err
	}
	if resp.Data.IntAccount == nil {
		return 0, &MalformedResponseError{Field: "data.intAccount"}
	}
	return *resp.Data.IntAccount, nil
}

// ClientInfo returns the profile of the logged-in user as sent by the server.
func (c *Client) ClientInfo(ctx context.Context) (map[string]any, error) {
	s, err := c.authenticated()
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data map[string]any `json:"data"`
	}
	if err := c.getJSON(ctx, "client", c.clientURL(s.Token), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &MalformedResponseError{Field: "data"}
	}
	return resp.Data, nil
}

func (c *Client) clientURL(token string) string {
	return c.baseURL + clientPath + "?" + newQuery().set("sessionId", token).encode()
}
