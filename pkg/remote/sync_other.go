//go:build !linux

package remote

// osSync is a no-op where a whole-filesystem sync is unavailable.
func osSync() {}
