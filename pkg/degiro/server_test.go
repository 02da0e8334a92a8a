package degiro

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// recordedCall is one request received by fakeServer.
type recordedCall struct {
	Method   string
	Endpoint string // path with the ";jsessionid=..." suffix removed
	Path     string
	Query    url.Values
	Body     []byte
}

// fakeServer is a DeGiro stand-in. Handlers are keyed by endpoint path.
type fakeServer struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	calls    []recordedCall
	handlers map[string]http.HandlerFunc
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{t: t, handlers: make(map[string]http.HandlerFunc)}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) handle(endpoint string, h http.HandlerFunc) {
	fs.handlers[endpoint] = h
}

// handleJSON answers endpoint with a fixed JSON body.
func (fs *fakeServer) handleJSON(endpoint, body string) {
	fs.handle(endpoint, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	})
}

func (fs *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	endpoint, _, _ := strings.Cut(r.URL.Path, ";")

	fs.mu.Lock()
	fs.calls = append(fs.calls, recordedCall{
		Method:   r.Method,
		Endpoint: endpoint,
		Path:     r.URL.Path,
		Query:    r.URL.Query(),
		Body:     body,
	})
	h, ok := fs.handlers[endpoint]
	fs.mu.Unlock()

	if !ok {
		fs.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
		return
	}
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	h(w, r)
}

// callsTo returns the recorded calls for endpoint in arrival order.
func (fs *fakeServer) callsTo(endpoint string) []recordedCall {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []recordedCall
	for _, c := range fs.calls {
		if c.Endpoint == endpoint {
			out = append(out, c)
		}
	}
	return out
}

// client returns a Client pointed at the fake server and seeded with a
// session.
func (fs *fakeServer) client() *Client {
	return NewClient(
		WithBaseURL(fs.srv.URL),
		WithSession(Session{Token: "tok", AccountID: 42}),
	)
}
