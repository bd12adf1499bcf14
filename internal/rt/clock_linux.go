//go:build linux

package rt

import "golang.org/x/sys/unix"

// Now returns the raw monotonic clock in nanoseconds. It is not slewed by NTP.
func Now() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		panic("schedbench: clock_gettime: " + err.Error())
	}
	return uint64(ts.Nano())
}
