package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// RuleServer serves a rule table over HTTP and counts requests.
type RuleServer struct {
	*httptest.Server
	hits atomic.Int64
}

// ServeRules starts a server answering every GET with body and status.
// The server is closed when the test finishes.
func ServeRules(t testing.TB, status int, body string) *RuleServer {
	t.Helper()
	rs := &RuleServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(rs.Server.Close)
	return rs
}

// Hits returns the number of requests served so far.
func (rs *RuleServer) Hits() int64 {
	return rs.hits.Load()
}
