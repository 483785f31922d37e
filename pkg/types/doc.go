/*
Package types provides the core interfaces and data structures for diracstore.

This package defines the contract between a host workflow engine and the
grid-storage adapter: a RemoteProvider that identifies the addressing
scheme and carries adapter-wide configuration, and a RemoteObject that
performs the storage operations for a single logical file name (LFN).

# Interface Contracts

All interfaces in this package follow these principles:

1. Context Awareness: blocking operations accept context.Context
2. Error Handling: all operations return explicit errors following Go conventions
3. One object, one path: a RemoteObject is bound to exactly one logical
   file name and one provider for its lifetime

Implementations live under pkg/remote; the concrete command execution
layer lives under internal/storage/dirac.
*/
package types
