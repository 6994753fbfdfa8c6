// Package evhttpd is a goroutine-per-connection HTTP/1.0 and HTTP/1.1
// server: an incremental, fragmentation-tolerant wire parser feeding a
// per-connection receive/dispatch/send pipeline, built directly on
// net.Listener and Go's netpoller rather than net/http.
package evhttpd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/evhttpd/evhttpd/pkg/constants"
	"github.com/evhttpd/evhttpd/pkg/dispatch"
	"github.com/evhttpd/evhttpd/pkg/errors"
	"github.com/evhttpd/evhttpd/pkg/httpmsg"
	"github.com/evhttpd/evhttpd/pkg/server"
)

// Re-export the types callers need to wire a server without reaching
// into pkg/* themselves.
type (
	// Options bounds how long a connection's pipeline waits on each
	// kind of I/O, and whether it offers keep-alive by default.
	Options = server.Options

	// Server accepts connections and runs the request/response
	// pipeline over each one until it closes.
	Server = server.Server

	// Stats is a snapshot of a Server's aggregate traffic counters.
	Stats = server.Stats

	// Request is the parsed form of an incoming HTTP/1.x message.
	Request = httpmsg.Request

	// Response is what a Handler fills in to answer a Request.
	Response = httpmsg.Response

	// Handler answers a Request by filling in a Response.
	Handler = dispatch.Handler

	// HttpMethod is one of the methods this server understands.
	HttpMethod = httpmsg.HttpMethod

	// Error is the structured error type every package in evhttpd
	// returns instead of an opaque error value.
	Error = errors.Error
)

// Re-export the method constants so callers registering handlers don't
// need a separate import of pkg/httpmsg.
const (
	MethodGet     = httpmsg.MethodGet
	MethodHead    = httpmsg.MethodHead
	MethodPost    = httpmsg.MethodPost
	MethodPut     = httpmsg.MethodPut
	MethodDelete  = httpmsg.MethodDelete
	MethodTrace   = httpmsg.MethodTrace
	MethodControl = httpmsg.MethodControl
	MethodPurge   = httpmsg.MethodPurge
	MethodOptions = httpmsg.MethodOptions
	MethodConnect = httpmsg.MethodConnect
)

// DefaultOptions returns the timeout/keep-alive defaults documented for
// a freshly configured server: a 10-minute total receive and send
// budget, a 2-minute idle window between keep-alive requests, and
// NeedKeepAlive off, so a connection closes after one request unless
// the handler sets Response.NeedKeepalive.
func DefaultOptions() Options {
	return Options{
		TotalRecvTimeout: constants.DefaultTotalRecvTimeout,
		KeepAliveTimeout: constants.DefaultKeepAliveTimeout,
		TotalSendTimeout: constants.DefaultTotalSendTimeout,
		NeedKeepAlive:    constants.DefaultNeedKeepAlive,
	}
}

// NewServer binds addr and returns a Server ready for Register calls
// and Start. A nil logger falls back to a no-op zap.Logger.
func NewServer(addr string, opts Options, logger *zap.Logger) (*Server, error) {
	return server.NewServer(addr, opts, logger)
}

// Start runs srv's accept loop until ctx is canceled.
func Start(ctx context.Context, srv *Server) error {
	return srv.Start(ctx)
}

// IsTimeoutError reports whether err is one of the structured timeout
// errors the receive/send pipeline produces.
func IsTimeoutError(err error) bool {
	return errors.IsTimeoutError(err)
}

// GetErrorType returns the error's category, or "" if err is not a
// structured *Error.
func GetErrorType(err error) string {
	return string(errors.GetErrorType(err))
}

// ShutdownTimeout is a convenience helper building a context.Context
// that cancels a running Server's accept loop after d, for callers
// that want a bounded-time graceful shutdown without writing their own
// context.WithTimeout/cancel boilerplate.
func ShutdownTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
