// Package snapshot defines the structured cluster-health snapshot consumed by
// the analysis engine, plus the normalizer that turns raw findings into typed
// issues. The snapshot itself is produced by an external collector.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Finding is one raw observation inside a snapshot category. Missing fields
// decode to empty strings; the normalizer never rejects a finding.
type Finding struct {
	Category  string `json:"category,omitempty"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Status    string `json:"status"`
	Details   string `json:"details,omitempty"`
}

// Snapshot is the structured view of a cluster's health at collection time.
type Snapshot struct {
	ClusterName    string    `json:"clusterName,omitempty"`
	ClusterVersion string    `json:"clusterVersion,omitempty"`
	CollectedAt    time.Time `json:"collectedAt,omitempty"`

	Nodes          []Finding `json:"nodes,omitempty"`
	Operators      []Finding `json:"operators,omitempty"`
	Pods           []Finding `json:"pods,omitempty"`
	Storage        []Finding `json:"storage,omitempty"`
	Virtualization []Finding `json:"virtualization,omitempty"`
	Migrations     []Finding `json:"migrations,omitempty"`
}

// Load reads a snapshot document from a file.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a snapshot document from a reader.
func Decode(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
