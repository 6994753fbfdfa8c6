// Package dispatch holds the method-indexed, exact-path handler table
// the connection pipeline consults once a request has been parsed.
package dispatch

import (
	"sync"

	"github.com/evhttpd/evhttpd/pkg/errors"
	"github.com/evhttpd/evhttpd/pkg/httpmsg"
)

// Handler answers a request by filling in resp. It runs on the
// connection's own goroutine; it must not block on anything but the
// work it was registered to do.
type Handler func(req *httpmsg.Request, resp *httpmsg.Response)

type entry struct {
	pattern string
	handler Handler
}

// Table is a dense per-method list of (exact path, Handler) entries.
// Registering the same (method, pattern) pair twice keeps both
// entries; dispatch scans newest-first so the most recent registration
// wins, matching spec.md 4.F's "last registration wins" rule.
type Table struct {
	mu       sync.RWMutex
	byMethod [httpmsg.MethodCount][]entry
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Register adds a handler for one method and exact path.
func (t *Table) Register(method httpmsg.HttpMethod, pattern string, h Handler) {
	idx := method.Index()
	if idx < 0 || idx >= httpmsg.MethodCount {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byMethod[idx] = append(t.byMethod[idx], entry{pattern: pattern, handler: h})
}

// RegisterMask adds the same handler for every method set in mask
// (each method's HttpMethod.Bit() ORed together).
func (t *Table) RegisterMask(mask uint16, pattern string, h Handler) {
	for i := 0; i < httpmsg.MethodCount; i++ {
		if mask&(1<<uint(i)) != 0 {
			t.Register(httpmsg.HttpMethod(i), pattern, h)
		}
	}
}

// Dispatch looks up req.Method and req.Path and runs the matching
// handler. It fails with EmptyHandler if the method has no handlers at
// all, or none of them match the exact path.
func (t *Table) Dispatch(req *httpmsg.Request, resp *httpmsg.Response) error {
	idx := req.Method.Index()
	if idx < 0 || idx >= httpmsg.MethodCount {
		return errors.NewEmptyHandlerError(req.Method.String())
	}

	t.mu.RLock()
	entries := t.byMethod[idx]
	t.mu.RUnlock()

	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].pattern == req.Path {
			entries[i].handler(req, resp)
			return nil
		}
	}
	return errors.NewEmptyHandlerError(req.Method.String())
}
