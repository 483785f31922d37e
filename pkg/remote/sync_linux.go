//go:build linux

package remote

import "golang.org/x/sys/unix"

// osSync flushes filesystem buffers so files written by the fetch tool
// are visible to a subsequent stat.
func osSync() {
	unix.Sync()
}
