//go:build !linux

package rt

import "runtime"

// pin locks the calling goroutine to its OS thread. Affinity is not set.
func pin(int) error {
	runtime.LockOSThread()
	return nil
}
