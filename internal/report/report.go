// Package report renders what a session did to an image: per-zone checksum
// status and per-patch outcomes, as JSON for tooling and PDF for the bench
// folder.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/thebringerofdeath789/535xi-sub001/internal/image"
	"github.com/thebringerofdeath789/535xi-sub001/internal/patch"
	"github.com/thebringerofdeath789/535xi-sub001/internal/zones"
)

// ZoneStatus is one row of the verification matrix.
type ZoneStatus struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Computed string `json:"computed"`
	Stored   string `json:"stored"`
	Valid    bool   `json:"valid"`
}

// SessionReport is the full record of one tool invocation against an image.
type SessionReport struct {
	Tool        string           `json:"tool"`
	Variant     string           `json:"variant"`
	Revision    string           `json:"revision,omitempty"`
	ImagePath   string           `json:"image_path"`
	ImageSha256 string           `json:"image_sha256,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Zones       []ZoneStatus     `json:"zones"`
	PatchSet    *patch.SetResult `json:"patch_set,omitempty"`
	Pass        bool             `json:"pass"`
}

// VerifyMatrix checks every zone of the variant against the image and
// reports computed versus stored words.
func VerifyMatrix(img *image.Image, zr *zones.Registry, variant string) ([]ZoneStatus, bool, error) {
	zs, err := zr.ZonesFor(variant)
	if err != nil {
		return nil, false, err
	}
	out := make([]ZoneStatus, len(zs))
	allValid := true
	for i, z := range zs {
		computed, err := zones.Compute(img, z)
		if err != nil {
			return nil, false, fmt.Errorf("zone %s: %w", z.Name, err)
		}
		stored, err := zones.Stored(img, z)
		if err != nil {
			return nil, false, fmt.Errorf("zone %s: %w", z.Name, err)
		}
		valid := computed == stored
		if !valid {
			allValid = false
		}
		width := z.Kind.StoredSize() * 2
		out[i] = ZoneStatus{
			Name:     z.Name,
			Kind:     string(z.Kind),
			Start:    z.Start,
			End:      z.End,
			Computed: fmt.Sprintf("%0*X", width, computed),
			Stored:   fmt.Sprintf("%0*X", width, stored),
			Valid:    valid,
		}
	}
	return out, allValid, nil
}

// New assembles a session report. Pass holds when every zone verifies and no
// patch in the set failed.
func New(variant, revision, imagePath string, zs []ZoneStatus, set *patch.SetResult) SessionReport {
	pass := true
	for _, z := range zs {
		if !z.Valid {
			pass = false
		}
	}
	if set != nil && set.Failed > 0 {
		pass = false
	}
	return SessionReport{
		Tool:      "calctl",
		Variant:   variant,
		Revision:  revision,
		ImagePath: imagePath,
		CreatedAt: time.Now().UTC(),
		Zones:     zs,
		PatchSet:  set,
		Pass:      pass,
	}
}

// SaveJSON writes the report as indented JSON.
func SaveJSON(rep SessionReport, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

// LoadJSON reads a report written by SaveJSON.
func LoadJSON(path string) (SessionReport, error) {
	var rep SessionReport
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	err = json.Unmarshal(b, &rep)
	return rep, err
}
