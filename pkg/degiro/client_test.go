package degiro

import (
	"testing"
)

func TestNewClient(t *testing.T) {
	c := NewClient()

	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.baseURL != DefaultBaseURL {
		t.Errorf("expected baseURL %q, got %q", DefaultBaseURL, c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
	if _, ok := c.Session(); ok {
		t.Error("new client should be unauthenticated")
	}
}

func TestWithSession(t *testing.T) {
	c := NewClient(WithBaseURL("http://localhost:8080"), WithSession(Session{Token: "t", AccountID: 7}))
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("expected baseURL %q, got %q", "http://localhost:8080", c.baseURL)
	}
	s, ok := c.Session()
	if !ok || s.Token != "t" || s.AccountID != 7 {
		t.Errorf("Session() = %+v, %v", s, ok)
	}

	// A token without an account is not a session.
	c = NewClient(WithSession(Session{Token: "t"}))
	if _, ok := c.Session(); ok {
		t.Error("partial session should be ignored")
	}
}

func TestSetSession(t *testing.T) {
	c := NewClient()
	c.SetSession(Session{Token: "a", AccountID: 1})
	if _, ok := c.Session(); !ok {
		t.Fatal("expected session after SetSession")
	}
	c.SetSession(Session{})
	if _, ok := c.Session(); ok {
		t.Error("empty SetSession should clear the session")
	}
}

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`"331868"`, "331868"},
		{`331868`, "331868"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var id ID
		if err := id.UnmarshalJSON([]byte(tt.in)); err != nil {
			t.Fatalf("UnmarshalJSON(%s) returned error: %v", tt.in, err)
		}
		if id != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %q, want %q", tt.in, id, tt.want)
		}
	}
}
