// Package connid hands out process-unique connection identifiers.
package connid

import "sync/atomic"

var counter atomic.Uint64

// Next returns a monotonically increasing, process-unique id.
// The first call returns 1; zero is never issued so callers can treat
// it as "no id assigned yet".
func Next() uint64 {
	return counter.Add(1)
}
