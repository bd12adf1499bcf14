//go:build !linux

package rt

import "time"

var epoch = time.Now()

// Now returns nanoseconds on the runtime's monotonic clock.
func Now() uint64 {
	return uint64(time.Since(epoch))
}
