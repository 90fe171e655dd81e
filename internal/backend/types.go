package backend

import (
	"encoding/json"
	"fmt"
	"io"
)

// ContainerEntry is one container in an account listing.
type ContainerEntry struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// ObjectEntry is one item of a container listing. Plain listings populate
// Name/Hash/Bytes/LastModified (or Subdir for a common prefix); versioned
// listings add VersionID, IsLatest and Deleted.
type ObjectEntry struct {
	Name         string `json:"name"`
	Subdir       string `json:"subdir"`
	Hash         string `json:"hash"`
	Bytes        int64  `json:"bytes"`
	LastModified string `json:"last_modified"`
	Owner        string `json:"owner"`
	VersionID    string `json:"version_id"`
	IsLatest     bool   `json:"is_latest"`
	Deleted      bool   `json:"deleted"`
}

// IsSubdir reports whether the entry is a common prefix rather than an
// object.
func (e *ObjectEntry) IsSubdir() bool {
	return e.Subdir != ""
}

// DecodeContainers decodes an account listing body.
func DecodeContainers(r io.Reader) ([]ContainerEntry, error) {
	var entries []ContainerEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding account listing: %w", err)
	}
	return entries, nil
}

// DecodeObjects decodes a container listing body.
func DecodeObjects(r io.Reader) ([]ObjectEntry, error) {
	var entries []ObjectEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding container listing: %w", err)
	}
	return entries, nil
}
