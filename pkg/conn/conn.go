// Package conn implements the per-connection pipeline: receive a
// request, dispatch it to a handler, serialize and send the response,
// then decide whether to keep the connection alive for another
// iteration. One Connection runs entirely on the goroutine that calls
// Serve; it touches no state shared with any other connection except
// the atomic counters it reports into.
package conn

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/evhttpd/evhttpd/pkg/buffer"
	"github.com/evhttpd/evhttpd/pkg/connid"
	"github.com/evhttpd/evhttpd/pkg/dispatch"
	"github.com/evhttpd/evhttpd/pkg/errors"
	"github.com/evhttpd/evhttpd/pkg/httpmsg"
	"github.com/evhttpd/evhttpd/pkg/ioops"
	"github.com/evhttpd/evhttpd/pkg/parser"
)

// Options bounds how long a connection's pipeline will wait on each
// kind of operation, and whether it offers keep-alive by default.
type Options struct {
	TotalRecvTimeout time.Duration
	KeepAliveTimeout time.Duration
	TotalSendTimeout time.Duration
	NeedKeepAlive    bool
}

// Counters receives atomic updates as the pipeline runs, so a server
// can aggregate traffic across every connection without locking. The
// zero value is safe to use; nil *atomic.Int64 fields simply drop the
// update.
type Counters struct {
	TotalRecvSize *atomic.Int64
	TotalSendSize *atomic.Int64
}

func (c Counters) addRecv(n int64) {
	if c.TotalRecvSize != nil {
		c.TotalRecvSize.Add(n)
	}
}

func (c Counters) addSend(n int64) {
	if c.TotalSendSize != nil {
		c.TotalSendSize.Add(n)
	}
}

// Connection runs the receive/dispatch/send loop over one accepted
// socket until the peer disconnects, a protocol error occurs, or
// keep-alive is declined.
type Connection struct {
	ID      uint64
	socket  net.Conn
	opts    Options
	table   *dispatch.Table
	logger  *zap.Logger
	counters Counters

	buf    *buffer.Buffer
	req    *httpmsg.Request
	resp   *httpmsg.Response
	parser *parser.Parser

	iterations int
}

// New wraps an accepted socket into a Connection ready to Serve. A nil
// logger falls back to zap.NewNop(). The buffer, request, response and
// parser are all allocated once and reused across every keep-alive
// iteration on this connection.
func New(socket net.Conn, opts Options, table *dispatch.Table, counters Counters, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	req := httpmsg.NewRequest()
	return &Connection{
		ID:       connid.Next(),
		socket:   socket,
		opts:     opts,
		table:    table,
		logger:   logger,
		counters: counters,
		buf:      buffer.New(0),
		req:      req,
		resp:     httpmsg.NewResponse(),
		parser:   parser.NewRequestParser(req),
	}
}

// Serve runs the pipeline to completion, closing the socket before it
// returns. ctx cancellation (e.g. server shutdown) aborts an
// in-progress wait promptly.
func (c *Connection) Serve(ctx context.Context) {
	defer c.socket.Close()

	for {
		c.iterations++
		if !c.runOne(ctx) {
			return
		}
		if !c.resp.NeedKeepalive {
			return
		}
	}
}

// runOne performs exactly one receive/dispatch/send cycle. It returns
// false when the connection should close after this iteration.
func (c *Connection) runOne(ctx context.Context) bool {
	c.req.Reset()
	c.resp.Reset()
	c.parser.Reset()

	recvTimeout := c.opts.TotalRecvTimeout
	if c.iterations > 1 && c.opts.KeepAliveTimeout > 0 {
		recvTimeout = c.opts.KeepAliveTimeout
	}

	if err := ioops.RecvRequest(ctx, c.socket, c.buf, c.parser, &c.req.Metric, recvTimeout); err != nil {
		if errors.IsTimeoutError(err) && c.iterations > 1 {
			c.logger.Debug("keep-alive connection idle, closing", zap.Uint64("conn_id", c.ID))
		} else {
			c.logger.Warn("recv_request failed", zap.Uint64("conn_id", c.ID), zap.Error(err))
		}
		return false
	}
	c.counters.addRecv(c.req.Metric.TotalBytes)

	// Seed the keep-alive default before dispatch so a handler that
	// reads or overrides resp.NeedKeepalive sees/wins over it; nothing
	// below touches the field again.
	c.resp.Version = c.req.Version
	c.resp.NeedKeepalive = c.opts.NeedKeepAlive && wantsKeepalive(c.req)

	if err := c.table.Dispatch(c.req, c.resp); err != nil {
		c.logger.Warn("dispatch failed", zap.Uint64("conn_id", c.ID), zap.Error(err))
		c.resp.Version = c.req.Version
		c.resp.StatusCode = 404
		c.resp.Body = nil
	}

	if !c.resp.Valid() {
		c.logger.Warn("handler produced invalid response", zap.Uint64("conn_id", c.ID))
		return false
	}

	wire, err := httpmsg.Serialize(c.resp)
	if err != nil {
		c.logger.Warn("serialize response failed", zap.Uint64("conn_id", c.ID), zap.Error(err))
		return false
	}
	headerLen := len(wire) - len(c.resp.Body)

	if err := ioops.SendResponse(ctx, c.socket, wire, headerLen, &c.resp.Metric, c.opts.TotalSendTimeout); err != nil {
		c.logger.Warn("send_response failed", zap.Uint64("conn_id", c.ID), zap.Error(err))
		return false
	}
	c.counters.addSend(c.resp.Metric.TotalBytes)

	return true
}

// wantsKeepalive reports whether the request's own version/headers
// ask for the connection to stay open: HTTP/1.1 defaults to
// keep-alive unless "Connection: close" is present; HTTP/1.0 is the
// reverse.
func wantsKeepalive(req *httpmsg.Request) bool {
	conn, _ := req.Headers.Get("Connection")
	switch req.Version {
	case httpmsg.HTTP11:
		return !asciiEqualFold(conn, "close")
	case httpmsg.HTTP10:
		return asciiEqualFold(conn, "keep-alive")
	default:
		return false
	}
}

func asciiEqualFold(s, want string) bool {
	if len(s) != len(want) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c |= 0x20
		}
		if c != want[i] {
			return false
		}
	}
	return true
}
