// Package patch applies byte-range modifications to a calibration image.
// Every patch is validated against the safety registry before any byte is
// written, and every checksum zone touched by a successful write is
// recomputed so the image never leaves with a stale stored checksum.
package patch

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSizeMismatch = errors.New("patch data length does not match declared size")
	ErrEmptyPatch   = errors.New("patch carries no data")
)

// MapPatch is a single byte-range modification. Data is exactly Size bytes;
// NewMapPatch enforces that at construction time.
type MapPatch struct {
	Name        string
	Offset      int
	Size        int
	Data        []byte
	Description string
	Category    string
	// Validate gates the safety-registry check. Disabling it is an
	// explicit escape hatch and is always logged.
	Validate bool
}

// NewMapPatch builds a patch and fails fast on a size mismatch, which
// indicates a programming error upstream. The data slice is copied.
func NewMapPatch(name string, offset, size int, data []byte) (MapPatch, error) {
	if size <= 0 || len(data) == 0 {
		return MapPatch{}, fmt.Errorf("%w: %q", ErrEmptyPatch, name)
	}
	if len(data) != size {
		return MapPatch{}, fmt.Errorf("%w: %q declares %d bytes, carries %d",
			ErrSizeMismatch, name, size, len(data))
	}
	buf := make([]byte, size)
	copy(buf, data)
	return MapPatch{Name: name, Offset: offset, Size: size, Data: buf, Validate: true}, nil
}

// check re-verifies the construction invariant for patches built directly
// or loaded from a persisted set.
func (p MapPatch) check() error {
	if p.Size <= 0 || len(p.Data) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyPatch, p.Name)
	}
	if len(p.Data) != p.Size {
		return fmt.Errorf("%w: %q declares %d bytes, carries %d",
			ErrSizeMismatch, p.Name, p.Size, len(p.Data))
	}
	return nil
}

// PatchSet is an ordered collection of patches applied together. The caller
// owns the set; the engine only reads it.
type PatchSet struct {
	Name        string
	Description string
	Created     time.Time
	Metadata    map[string]string
	Patches     []MapPatch
}

// State tracks a patch through its application lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateValidated  State = "validated"
	StateApplied    State = "applied"
	StateCrcUpdated State = "crc_updated"
	StateFailed     State = "failed"
)

// PatchResult reports the outcome of one patch.
type PatchResult struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
	State  State  `json:"state"`
	// Reason is the human-readable rejection message when State is
	// StateFailed.
	Reason string `json:"reason,omitempty"`
	// Zones lists the checksum zones overlapped by this patch.
	Zones []string `json:"zones,omitempty"`
}

// Failed reports whether the patch was rejected.
func (r PatchResult) Failed() bool {
	return r.State == StateFailed
}

// SetResult aggregates the outcome of an ApplySet call.
type SetResult struct {
	SetName      string        `json:"set_name"`
	Applied      int           `json:"applied"`
	Failed       int           `json:"failed"`
	Results      []PatchResult `json:"results"`
	ZonesUpdated int           `json:"zones_updated"`
	ZoneNames    []string      `json:"zone_names,omitempty"`
}
