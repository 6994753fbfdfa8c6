// Package server implements the acceptor: it binds a listener, accepts
// connections, and hands each one to the connection pipeline on its own
// goroutine. It owns the server-wide atomic counters every connection
// reports traffic into and the dispatch table handlers register against.
package server

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/evhttpd/evhttpd/pkg/conn"
	"github.com/evhttpd/evhttpd/pkg/dispatch"
	"github.com/evhttpd/evhttpd/pkg/errors"
	"github.com/evhttpd/evhttpd/pkg/httpmsg"
)

// Options bounds the pipeline behavior of every connection this server
// accepts. All three durations must be strictly positive.
type Options struct {
	TotalRecvTimeout time.Duration
	KeepAliveTimeout time.Duration
	TotalSendTimeout time.Duration
	NeedKeepAlive    bool
}

func (o Options) validate() error {
	switch {
	case o.TotalRecvTimeout <= 0:
		return errors.NewValidationError("TotalRecvTimeout must be positive")
	case o.KeepAliveTimeout <= 0:
		return errors.NewValidationError("KeepAliveTimeout must be positive")
	case o.TotalSendTimeout <= 0:
		return errors.NewValidationError("TotalSendTimeout must be positive")
	}
	return nil
}

func (o Options) toConnOptions() conn.Options {
	return conn.Options{
		TotalRecvTimeout: o.TotalRecvTimeout,
		KeepAliveTimeout: o.KeepAliveTimeout,
		TotalSendTimeout: o.TotalSendTimeout,
		NeedKeepAlive:    o.NeedKeepAlive,
	}
}

// Stats is a snapshot of the server's aggregate counters, read with
// atomic loads. Callers (a metrics bridge, an admin endpoint) poll this
// rather than holding any lock.
type Stats struct {
	TotalRecvSize       int64
	TotalSendSize       int64
	AcceptedConnections int64
	ActiveConnections   int64
}

// Server accepts connections on a bound listener and serves each one
// through pkg/conn until it closes or ctx is canceled.
type Server struct {
	listener net.Listener
	opts     Options
	table    *dispatch.Table
	logger   *zap.Logger

	totalRecvSize       atomic.Int64
	totalSendSize       atomic.Int64
	acceptedConnections atomic.Int64
	activeConnections   atomic.Int64
}

// NewServer binds addr (host:port, either tcp4 or tcp6 via Go's
// dual-stack net.Listen) and returns a Server ready to Start. A nil
// logger falls back to zap.NewNop().
func NewServer(addr string, opts Options, logger *zap.Logger) (*Server, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: l,
		opts:     opts,
		table:    dispatch.NewTable(),
		logger:   logger,
	}, nil
}

// NewServerWithListener is like NewServer but takes a caller-provided
// listener, letting tests bind an ephemeral port or wrap a listener in
// additional accept-side logic.
func NewServerWithListener(l net.Listener, opts Options, logger *zap.Logger) (*Server, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		listener: l,
		opts:     opts,
		table:    dispatch.NewTable(),
		logger:   logger,
	}, nil
}

// Addr returns the listener's bound address, including the port chosen
// by the kernel if the caller asked for port 0.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Register adds a handler for one method and exact path.
func (s *Server) Register(method httpmsg.HttpMethod, pattern string, h dispatch.Handler) {
	s.table.Register(method, pattern, h)
}

// RegisterMask adds the same handler for every method set in mask.
func (s *Server) RegisterMask(mask uint16, pattern string, h dispatch.Handler) {
	s.table.RegisterMask(mask, pattern, h)
}

// Stats returns a point-in-time snapshot of the server's counters.
func (s *Server) Stats() Stats {
	return Stats{
		TotalRecvSize:       s.totalRecvSize.Load(),
		TotalSendSize:       s.totalSendSize.Load(),
		AcceptedConnections: s.acceptedConnections.Load(),
		ActiveConnections:   s.activeConnections.Load(),
	}
}

// Start runs the accept loop until ctx is canceled or the listener is
// closed. Each accepted socket is served on its own goroutine; Start
// closes the listener (unblocking Accept) when ctx is done, then
// returns once that has happened.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	counters := conn.Counters{
		TotalRecvSize: &s.totalRecvSize,
		TotalSendSize: &s.totalSendSize,
	}

	for {
		socket, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("accept failed", zap.Error(err))
			return err
		}

		s.acceptedConnections.Add(1)
		s.activeConnections.Add(1)
		c := conn.New(socket, s.opts.toConnOptions(), s.table, counters, s.logger)
		go func() {
			defer s.activeConnections.Add(-1)
			c.Serve(ctx)
		}()
	}
}
