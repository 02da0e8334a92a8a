package degiro

// Session is an authenticated DeGiro session: the token issued at login and
// the internal account number resolved right after it. A Session value is
// only ever published complete; a client without one is unauthenticated.
type Session struct {
	Token     string
	AccountID int64
}

func (s Session) valid() bool {
	return s.Token != "" && s.AccountID != 0
}

// Session returns the current session and whether the client is
// authenticated.
func (c *Client) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// SetSession replaces the current session. An incomplete session clears it.
func (c *Client) SetSession(s Session) {
	if !s.valid() {
		c.session = nil
		return
	}
	c.session = &s
}

// authenticated returns the current session or ErrNotAuthenticated.
func (c *Client) authenticated() (Session, error) {
	s, ok := c.Session()
	if !ok {
		return Session{}, ErrNotAuthenticated
	}
	return s, nil
}
