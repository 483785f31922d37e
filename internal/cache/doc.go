// Package cache provides a TTL-bounded LRU cache for catalog metadata
// replies, keyed by logical file name. Each cache hit saves a full
// external process invocation against the file catalog.
package cache
