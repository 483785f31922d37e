package types

import (
	"context"
	"time"
)

// RemoteProvider identifies the addressing scheme for remote files and
// holds adapter-wide configuration consumed by every RemoteObject
// created under it.
type RemoteProvider interface {
	// DefaultProtocol is the scheme prepended to a path when none is given.
	DefaultProtocol() string

	// AvailableProtocols lists the schemes this provider accepts.
	AvailableProtocols() []string

	// Retry is the non-negative retry budget for command invocations.
	Retry() int

	// Pass-through workflow-engine flags, not interpreted here.
	KeepLocal() bool
	StayOnRemote() bool
	IsDefault() bool
}

// RemoteObject performs storage operations for one logical file name.
type RemoteObject interface {
	// Exists reports whether the remote file is known to the federation.
	Exists(ctx context.Context) (bool, error)

	// Mtime returns the remote modification time.
	Mtime(ctx context.Context) (time.Time, error)

	// Size returns the remote size in bytes.
	Size(ctx context.Context) (int64, error)

	// Download materializes the remote file at the local staging path.
	// It returns (path, true, nil) on success and ("", false, nil) when
	// the transfer could not be confirmed; errors are reserved for hard
	// failures.
	Download(ctx context.Context) (string, bool, error)

	// Upload publishes the local staging file to the default storage
	// element under the object's logical file name.
	Upload(ctx context.Context) (bool, error)

	// List enumerates remote entries matching the object's path pattern.
	List(ctx context.Context) ([]string, error)

	// Host identifies the storage endpoint backing this object.
	Host() string
}
