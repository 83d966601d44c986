// SPDX-License-Identifier: Apache-2.0

package krb5msg

import (
	"sync/atomic"
	"time"
)

// Clock returns the current wall-clock time as whole seconds since the Unix
// epoch plus a microsecond remainder, matching the (timestamp, usec) pair
// carried in SAFE/PRIV messages.
type Clock interface {
	Now() (seconds int64, usec int32)
}

// systemClock is the production Clock, backed by time.Now.
type systemClock struct{}

func (systemClock) Now() (int64, int32) {
	now := time.Now().UTC()
	return now.Unix(), int32(now.Nanosecond() / 1000)
}

// DefaultClock is used by MakeSafe/ReadPriv/etc when no Clock is supplied.
var DefaultClock Clock = systemClock{}

// clockSkewNanos holds the configured clock skew as int64 nanoseconds so it
// can be read/written with atomic operations without a mutex; accessed via
// CurrentClockSkew/SetClockSkew.
var clockSkewNanos int64 = int64(300 * time.Second)

// CurrentClockSkew returns the maximum tolerated difference between the
// sender's and receiver's clocks. Defaults to 300 seconds per RFC 4120.
func CurrentClockSkew() time.Duration {
	return time.Duration(atomic.LoadInt64(&clockSkewNanos))
}

// SetClockSkew sets the process-wide clock skew tolerance used by ReadPriv
// and ReadSafe's timestamp policy check.
func SetClockSkew(d time.Duration) {
	atomic.StoreInt64(&clockSkewNanos, int64(d))
}
