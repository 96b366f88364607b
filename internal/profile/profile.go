// Package profile bundles the static configuration of one ECU variant: its
// address geometry, checksum zone table, forbidden regions, map definitions
// and conversion formulas. Profiles for known variants ship built in; others
// load from YAML.
package profile

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thebringerofdeath789/535xi-sub001/internal/boost"
	"github.com/thebringerofdeath789/535xi-sub001/internal/formula"
	"github.com/thebringerofdeath789/535xi-sub001/internal/safety"
	"github.com/thebringerofdeath789/535xi-sub001/internal/zones"
)

var (
	ErrBadProfile     = errors.New("invalid profile")
	ErrUnknownVariant = errors.New("no built-in profile for variant")
)

// Profile is the on-disk and built-in description of one variant.
type Profile struct {
	Variant     string      `yaml:"variant"`
	Revision    string      `yaml:"revision"`
	Description string      `yaml:"description,omitempty"`
	Geometry    GeometryDef `yaml:"geometry"`
	Zones       []ZoneDef   `yaml:"zones"`
	Forbidden   []RegionDef `yaml:"forbidden,omitempty"`
	Maps        []MapDef    `yaml:"maps,omitempty"`
}

// GeometryDef mirrors safety.Geometry with YAML tags.
type GeometryDef struct {
	ImageSize int   `yaml:"image_size"`
	ROMBase   int64 `yaml:"rom_base"`
	CalBase   int64 `yaml:"cal_base"`
}

// ZoneDef describes one checksum zone. Type is "crc16" or "crc32".
type ZoneDef struct {
	Name           string `yaml:"name"`
	Start          int    `yaml:"start"`
	End            int    `yaml:"end"`
	ChecksumOffset int    `yaml:"crc_offset"`
	Type           string `yaml:"type"`
	Description    string `yaml:"description,omitempty"`
}

// RegionDef describes one forbidden region. An empty space marks legacy
// definitions checked under both file and calibration readings.
type RegionDef struct {
	Name   string `yaml:"name"`
	Start  int64  `yaml:"start"`
	End    int64  `yaml:"end"`
	Reason string `yaml:"reason"`
	Space  string `yaml:"space,omitempty"`
}

// MapDef describes one tunable table. Formula is present on maps exposed
// through the table adapter.
type MapDef struct {
	Name       string           `yaml:"name"`
	Offset     int64            `yaml:"offset"`
	Space      string           `yaml:"space,omitempty"`
	Size       int              `yaml:"size"`
	Rows       int              `yaml:"rows,omitempty"`
	Cols       int              `yaml:"cols,omitempty"`
	Category   string           `yaml:"category,omitempty"`
	Status     string           `yaml:"status"`
	Confidence float64          `yaml:"confidence,omitempty"`
	Warnings   []string         `yaml:"warnings,omitempty"`
	Formula    *formula.Formula `yaml:"formula,omitempty"`
}

// Bundle is a built profile: the registries and table revision the rest of
// the toolkit consumes.
type Bundle struct {
	Profile  *Profile
	Zones    *zones.Registry
	Safety   *safety.Registry
	Revision *boost.Revision
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

// Save writes the profile as YAML.
func (p *Profile) Save(path string) error {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

func (p *Profile) validate() error {
	if p.Variant == "" {
		return fmt.Errorf("%w: missing variant", ErrBadProfile)
	}
	if p.Revision == "" {
		return fmt.Errorf("%w: missing software revision", ErrBadProfile)
	}
	if len(p.Zones) == 0 {
		return fmt.Errorf("%w: no checksum zones", ErrBadProfile)
	}
	for _, zd := range p.Zones {
		if _, err := zoneKind(zd.Type); err != nil {
			return fmt.Errorf("zone %q: %w", zd.Name, err)
		}
	}
	for _, md := range p.Maps {
		if md.Formula != nil {
			if err := md.Formula.Validate(); err != nil {
				return fmt.Errorf("map %q: %w", md.Name, err)
			}
			if md.Rows <= 0 || md.Cols <= 0 {
				return fmt.Errorf("%w: map %q has a formula but no table shape", ErrBadProfile, md.Name)
			}
		}
	}
	return nil
}

func zoneKind(t string) (zones.Kind, error) {
	switch t {
	case "crc16":
		return zones.KindCRC16, nil
	case "crc32":
		return zones.KindCRC32, nil
	default:
		return "", fmt.Errorf("%w: unknown checksum type %q", ErrBadProfile, t)
	}
}

// Build assembles the registries and table revision from the profile. Every
// offset is normalized here, at load time.
func (p *Profile) Build() (*Bundle, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	zs := make([]zones.Zone, len(p.Zones))
	for i, zd := range p.Zones {
		kind, err := zoneKind(zd.Type)
		if err != nil {
			return nil, err
		}
		zs[i] = zones.Zone{
			Name:           zd.Name,
			Start:          zd.Start,
			End:            zd.End,
			ChecksumOffset: zd.ChecksumOffset,
			Kind:           kind,
			Description:    zd.Description,
		}
	}
	zr := zones.NewRegistry()
	if err := zr.Register(p.Variant, zs); err != nil {
		return nil, fmt.Errorf("variant %s: %w", p.Variant, err)
	}

	forbidden := make([]safety.ForbiddenRegion, len(p.Forbidden))
	for i, rd := range p.Forbidden {
		forbidden[i] = safety.ForbiddenRegion{
			Name:   rd.Name,
			Start:  rd.Start,
			End:    rd.End,
			Reason: rd.Reason,
			Space:  safety.OffsetSpace(rd.Space),
		}
	}
	maps := make([]safety.MapDefinition, len(p.Maps))
	for i, md := range p.Maps {
		maps[i] = safety.MapDefinition{
			Name:       md.Name,
			Offset:     md.Offset,
			Space:      safety.OffsetSpace(md.Space),
			Size:       md.Size,
			Rows:       md.Rows,
			Cols:       md.Cols,
			Category:   md.Category,
			Status:     safety.MapStatus(md.Status),
			Confidence: md.Confidence,
			Warnings:   md.Warnings,
		}
	}
	sr, err := safety.NewRegistry(safety.Geometry{
		ImageSize: p.Geometry.ImageSize,
		ROMBase:   p.Geometry.ROMBase,
		CalBase:   p.Geometry.CalBase,
	}, forbidden, maps)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", p.Variant, err)
	}

	rev := &boost.Revision{ID: p.Revision, Tables: make(map[string]boost.Table)}
	for _, md := range p.Maps {
		if md.Formula == nil {
			continue
		}
		def, fileOff, ok := sr.MapByName(md.Name)
		if !ok {
			return nil, fmt.Errorf("%w: map %q not registered", ErrBadProfile, md.Name)
		}
		rev.Tables[md.Name] = boost.Table{
			Def:        def,
			Conv:       *md.Formula,
			FileOffset: fileOff,
		}
	}

	return &Bundle{Profile: p, Zones: zr, Safety: sr, Revision: rev}, nil
}

// Builtin returns a fresh copy of the built-in profile for the variant.
func Builtin(variant string) (*Profile, error) {
	switch variant {
	case "MSD80":
		return msd80(), nil
	case "MSD81":
		return msd81(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
}

// Variants lists the variants with built-in profiles.
func Variants() []string {
	return []string{"MSD80", "MSD81"}
}

// Open loads the profile for the variant from path when given, or falls back
// to the built-in profile.
func Open(variant, path string) (*Profile, error) {
	if path != "" {
		return Load(path)
	}
	return Builtin(variant)
}
