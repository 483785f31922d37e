package types

import "time"

// ObjectInfo represents metadata about a remote file, extracted from a
// metadata-query response.
type ObjectInfo struct {
	LFN     string    `json:"lfn"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}
