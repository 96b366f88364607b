package patch

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Persisted form of a patch set. Patch data is hex-encoded so the document
// stays diffable; Load(Save(x)) == x.

type patchDoc struct {
	Name        string `json:"name"`
	Offset      int64  `json:"offset"`
	Size        int    `json:"size"`
	Data        string `json:"data"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Validate    bool   `json:"validate"`
}

type setDoc struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Created     time.Time         `json:"created"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Patches     []patchDoc        `json:"patches"`
}

// MarshalSet renders the set to its persisted JSON form.
func MarshalSet(set *PatchSet) ([]byte, error) {
	doc := setDoc{
		Name:        set.Name,
		Description: set.Description,
		Created:     set.Created.UTC(),
		Metadata:    set.Metadata,
	}
	for _, p := range set.Patches {
		if err := p.check(); err != nil {
			return nil, err
		}
		doc.Patches = append(doc.Patches, patchDoc{
			Name:        p.Name,
			Offset:      int64(p.Offset),
			Size:        p.Size,
			Data:        hex.EncodeToString(p.Data),
			Description: p.Description,
			Category:    p.Category,
			Validate:    p.Validate,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalSet parses the persisted JSON form.
func UnmarshalSet(data []byte) (*PatchSet, error) {
	var doc setDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse patch set: %w", err)
	}
	set := &PatchSet{
		Name:        doc.Name,
		Description: doc.Description,
		Created:     doc.Created.UTC(),
		Metadata:    doc.Metadata,
	}
	for _, pd := range doc.Patches {
		raw, err := hex.DecodeString(pd.Data)
		if err != nil {
			return nil, fmt.Errorf("patch %q: decode data: %w", pd.Name, err)
		}
		p := MapPatch{
			Name:        pd.Name,
			Offset:      int(pd.Offset),
			Size:        pd.Size,
			Data:        raw,
			Description: pd.Description,
			Category:    pd.Category,
			Validate:    pd.Validate,
		}
		if err := p.check(); err != nil {
			return nil, err
		}
		set.Patches = append(set.Patches, p)
	}
	return set, nil
}

// SaveSet writes the persisted form to path.
func SaveSet(set *PatchSet, path string) error {
	data, err := MarshalSet(set)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadSet reads a persisted patch set from path.
func LoadSet(path string) (*PatchSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalSet(data)
}
