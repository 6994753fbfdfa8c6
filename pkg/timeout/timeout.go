// Package timeout implements the timeout combinator: it races an
// asynchronous I/O operation against a deadline and reports the
// operation's start/stop timestamps and byte count.
package timeout

import (
	"context"
	"time"
)

// Result reports how an Operation resolved: the wall-clock window it
// ran in and the number of bytes it transferred.
type Result struct {
	Start time.Time
	Stop  time.Time
	Bytes int
}

// Operation performs one unit of I/O, returning the number of bytes
// transferred. It must observe ctx's deadline/cancellation promptly
// (e.g. by deriving a net.Conn deadline from it) so Race never leaks
// a goroutine waiting on an operation that ignores cancellation.
type Operation func(ctx context.Context) (int, error)

// TimeoutFunc builds the domain-specific error to surface when the
// deadline is reached before op completes, given the elapsed duration.
type TimeoutFunc func(elapsed time.Duration) error

// Race runs op against a deadline of d. On success it returns a
// Result with op's byte count and the wall-clock window it ran in. If
// d elapses first, op is given a chance to unwind via ctx cancellation,
// Race waits for it to return (so the goroutine running it is never
// leaked), and onTimeout's error is returned instead of op's, unless
// op still returned bytes with no error, in which case that result is
// returned as a success.
//
// Race supports zero-transfer cancellations: if op returns having
// copied no bytes, Result.Bytes is simply 0 and the timeout error is
// still reported.
func Race(ctx context.Context, d time.Duration, op Operation, onTimeout TimeoutFunc) (Result, error) {
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		n   int
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		n, err := op(cctx)
		done <- outcome{n: n, err: err}
	}()

	select {
	case o := <-done:
		return Result{Start: start, Stop: time.Now(), Bytes: o.n}, o.err
	case <-cctx.Done():
		o := <-done // op must respect cctx; wait for it so nothing leaks
		stop := time.Now()
		if o.err == nil && o.n > 0 {
			// op squeezed through right at the deadline; honor its data.
			return Result{Start: start, Stop: stop, Bytes: o.n}, nil
		}
		return Result{Start: start, Stop: stop, Bytes: o.n}, onTimeout(stop.Sub(start))
	}
}
