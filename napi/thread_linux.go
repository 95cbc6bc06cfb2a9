//go:build linux

package napi

import "golang.org/x/sys/unix"

func currentThreadID() int {
	return unix.Gettid()
}
