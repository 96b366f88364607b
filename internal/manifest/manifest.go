// Package manifest records what a map extraction or edit touched: the map's
// coordinates in both file and device address space, a CRC-32 of its bytes,
// and the checksum zones a write to it would dirty. Manifests travel next to
// exported bins so a flash session can be audited later.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/thebringerofdeath789/535xi-sub001/internal/checksum"
	"github.com/thebringerofdeath789/535xi-sub001/internal/image"
	"github.com/thebringerofdeath789/535xi-sub001/internal/safety"
	"github.com/thebringerofdeath789/535xi-sub001/internal/zones"
)

// ZoneRef names one checksum zone affected by writes to the map.
type ZoneRef struct {
	Name      string `json:"name"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	CrcOffset int    `json:"crc_offset"`
	CrcType   string `json:"crc_type"`
}

// Manifest describes one extracted or edited map region.
type Manifest struct {
	MapName        string    `json:"map_name"`
	MapOffset      int       `json:"map_offset"`
	AbsoluteOffset int64     `json:"absolute_offset"`
	Rows           int       `json:"rows,omitempty"`
	Cols           int       `json:"cols,omitempty"`
	Length         int       `json:"length"`
	Crc32          string    `json:"crc32"`
	Vin            string    `json:"vin,omitempty"`
	Variant        string    `json:"variant"`
	CreatedAt      time.Time `json:"created_at"`
	AffectedZones  []ZoneRef `json:"affected_crc_zones"`
}

// Build snapshots the named map from the image. The CRC-32 covers the map's
// current bytes, not the whole file.
func Build(img *image.Image, sr *safety.Registry, zr *zones.Registry, variant, mapName, vin string) (Manifest, error) {
	var m Manifest
	def, fileOff, ok := sr.MapByName(mapName)
	if !ok {
		return m, fmt.Errorf("map %q not defined for %s", mapName, variant)
	}
	data, err := img.Slice(fileOff, def.Size)
	if err != nil {
		return m, fmt.Errorf("map %q: %w", mapName, err)
	}
	affected, err := zr.ZonesOverlapping(fileOff, def.Size, variant)
	if err != nil {
		return m, err
	}
	refs := make([]ZoneRef, len(affected))
	for i, z := range affected {
		refs[i] = ZoneRef{
			Name:      z.Name,
			Start:     z.Start,
			End:       z.End,
			CrcOffset: z.ChecksumOffset,
			CrcType:   string(z.Kind),
		}
	}
	return Manifest{
		MapName:        mapName,
		MapOffset:      fileOff,
		AbsoluteOffset: sr.FileToAbsolute(fileOff),
		Rows:           def.Rows,
		Cols:           def.Cols,
		Length:         def.Size,
		Crc32:          fmt.Sprintf("%08X", checksum.CRC32(data, 0)),
		Vin:            vin,
		Variant:        variant,
		CreatedAt:      time.Now().UTC(),
		AffectedZones:  refs,
	}, nil
}

// Save writes the manifest as indented JSON.
func Save(m Manifest, path string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Load reads a manifest written by Save.
func Load(path string) (Manifest, error) {
	var m Manifest
	raw, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.MapName == "" || m.Length <= 0 {
		return m, fmt.Errorf("manifest %s is missing map coordinates", path)
	}
	return m, nil
}

// VerifyAgainst recomputes the map CRC-32 from the image and reports whether
// it still matches the manifest.
func (m Manifest) VerifyAgainst(img *image.Image) (bool, error) {
	data, err := img.Slice(m.MapOffset, m.Length)
	if err != nil {
		return false, err
	}
	return fmt.Sprintf("%08X", checksum.CRC32(data, 0)) == m.Crc32, nil
}
