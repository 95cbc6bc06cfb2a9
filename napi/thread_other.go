//go:build !linux

package napi

// Thread ids are only tracked on Linux; elsewhere every thread reports 0.
func currentThreadID() int {
	return 0
}
