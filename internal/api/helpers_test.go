package api

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/vulnetix/bkctl/internal/auth"
)

type recordingNotifier struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

func (n *recordingNotifier) NotifyError(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *recordingNotifier) NotifyInfo(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, message)
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Push(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

// doerFunc adapts a function to HTTPDoer
type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

var errConnectionRefused = errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")

func unreachableDoer() HTTPDoer {
	return doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errConnectionRefused
	})
}

// captured is what a test backend saw of the last request
type captured struct {
	mu      sync.Mutex
	method  string
	path    string
	query   string
	header  http.Header
	body    string
	request int
}

func (c *captured) snapshot() captured {
	c.mu.Lock()
	defer c.mu.Unlock()
	return captured{method: c.method, path: c.path, query: c.query, header: c.header, body: c.body, request: c.request}
}

// newBackend starts a test server answering every call with status and body
func newBackend(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	seen := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		seen.mu.Lock()
		seen.method = r.Method
		seen.path = r.URL.Path
		seen.query = r.URL.RawQuery
		seen.header = r.Header.Clone()
		seen.body = string(data)
		seen.request++
		seen.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

// newTestClient wires a client with the failure interceptor and recording collaborators
func newTestClient(baseURL string, options ...Option) (*Client, *auth.MemoryStore, *recordingNotifier, *recordingNavigator) {
	store := auth.NewMemoryStore()
	notifier := &recordingNotifier{}
	navigator := &recordingNavigator{}

	options = append([]Option{WithClientCredentials("myclientid", "myclientsecret")}, options...)
	client := NewClient(baseURL, store, options...)
	NewFailureInterceptor(store, notifier, navigator, nil).Register(client)
	return client, store, notifier, navigator
}

func newServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}
