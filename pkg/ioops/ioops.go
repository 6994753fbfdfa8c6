// Package ioops implements the two timed I/O operations the
// connection pipeline performs each iteration: receiving a request
// into the parser and sending a serialized response, each racing a
// shared deadline via pkg/timeout and failing with the timeout
// category that matches how far the operation had gotten.
package ioops

import (
	"context"
	"net"
	"time"

	"github.com/evhttpd/evhttpd/pkg/buffer"
	"github.com/evhttpd/evhttpd/pkg/errors"
	"github.com/evhttpd/evhttpd/pkg/metric"
	"github.com/evhttpd/evhttpd/pkg/parser"
	"github.com/evhttpd/evhttpd/pkg/timeout"
)

// RecvRequest reads from conn into buf and feeds the readable span to
// p until p completes a message, the deadline total elapses, or conn
// reports end of stream. total is spent across the whole call; each
// read shrinks the remaining budget by however long it actually took,
// so a slow peer cannot reset the clock by trickling bytes forever. m
// is updated once per completed conn.Read so FirstByteAt/LastByteAt
// reflect true wire timing rather than a single post-hoc snapshot.
func RecvRequest(ctx context.Context, conn net.Conn, buf *buffer.Buffer, p *parser.Parser, m *metric.Metric, total time.Duration) error {
	remaining := total
	sawAnyBytes := false

	for {
		n, err := p.Parse(buf.ReadableSpan())
		buf.Consume(n)
		if err == nil {
			return nil
		}
		if !errors.IsNeedMore(err) {
			return err
		}

		if remaining <= 0 {
			return recvTimeoutFor(p.Phase(), sawAnyBytes, total)
		}
		if err := buf.Prepare(); err != nil {
			return err
		}

		result, err := timeout.Race(ctx, remaining, func(cctx context.Context) (int, error) {
			deadline, _ := cctx.Deadline()
			conn.SetReadDeadline(deadline)
			return conn.Read(buf.WritableSpan())
		}, func(time.Duration) error {
			return recvTimeoutFor(p.Phase(), sawAnyBytes, total)
		})
		if err != nil {
			return err
		}
		if result.Bytes == 0 {
			return errors.NewEndOfStreamError()
		}
		buf.Commit(result.Bytes)
		m.Observe(result.Stop, result.Bytes)
		sawAnyBytes = true
		remaining -= result.Stop.Sub(result.Start)
	}
}

func recvTimeoutFor(phase parser.Phase, sawAnyBytes bool, total time.Duration) error {
	if !sawAnyBytes {
		return errors.NewRecvRequestTimeoutWithNothingError(total)
	}
	switch phase {
	case parser.PhaseStartLine:
		return errors.NewRecvRequestLineTimeoutError(total)
	case parser.PhaseHeaders:
		return errors.NewRecvRequestHeadersTimeoutError(total)
	default:
		return errors.NewRecvRequestBodyTimeoutError(total)
	}
}

// SendResponse writes data to conn until every byte is flushed or the
// deadline total elapses. headerLen is the offset of the body within
// data (the status line and headers end there); it determines which
// of the two finer send-timeout categories a stall is reported as. m
// is updated once per completed conn.Write.
func SendResponse(ctx context.Context, conn net.Conn, data []byte, headerLen int, m *metric.Metric, total time.Duration) error {
	remaining := total
	written := 0
	sawAnyBytes := false

	for written < len(data) {
		if remaining <= 0 {
			return sendTimeoutFor(written, headerLen, sawAnyBytes, total)
		}

		result, err := timeout.Race(ctx, remaining, func(cctx context.Context) (int, error) {
			deadline, _ := cctx.Deadline()
			conn.SetWriteDeadline(deadline)
			return conn.Write(data[written:])
		}, func(time.Duration) error {
			return sendTimeoutFor(written, headerLen, sawAnyBytes, total)
		})
		if err != nil {
			return err
		}
		written += result.Bytes
		m.Observe(result.Stop, result.Bytes)
		sawAnyBytes = true
		remaining -= result.Stop.Sub(result.Start)
	}
	return nil
}

func sendTimeoutFor(written, headerLen int, sawAnyBytes bool, total time.Duration) error {
	if !sawAnyBytes {
		return errors.NewSendResponseTimeoutWithNothingError(total)
	}
	if written < headerLen {
		return errors.NewSendResponseLineAndHeadersTimeoutError(total)
	}
	return errors.NewSendResponseBodyTimeoutError(total)
}
