// Package zones maintains the per-variant registry of checksum-protected
// byte ranges and the verify/recompute logic over them. Registries are built
// once at startup and are read-only afterwards.
package zones

import (
	"errors"
	"fmt"

	"github.com/thebringerofdeath789/535xi-sub001/internal/checksum"
	"github.com/thebringerofdeath789/535xi-sub001/internal/image"
)

// Kind selects the checksum algorithm protecting a zone.
type Kind string

const (
	KindCRC16 Kind = "crc16"
	KindCRC32 Kind = "crc32"
)

// StoredSize returns the width of the stored checksum word in bytes.
func (k Kind) StoredSize() int {
	if k == KindCRC32 {
		return 4
	}
	return 2
}

var (
	ErrUnknownVariant = errors.New("unknown ECU variant")
	ErrUnknownZone    = errors.New("unknown checksum zone")
	ErrBadZone        = errors.New("invalid checksum zone definition")
)

// Zone is a checksum-protected byte range [Start, End) whose checksum is
// stored little-endian at ChecksumOffset. The stored word lies at or after
// End, never inside the protected span.
type Zone struct {
	Name           string
	Start          int
	End            int
	ChecksumOffset int
	Kind           Kind
	Description    string
}

func (z Zone) validate() error {
	if z.Name == "" {
		return fmt.Errorf("%w: zone has no name", ErrBadZone)
	}
	if z.Start < 0 || z.Start >= z.End {
		return fmt.Errorf("%w: %s span [0x%X, 0x%X)", ErrBadZone, z.Name, z.Start, z.End)
	}
	if z.ChecksumOffset < z.End {
		return fmt.Errorf("%w: %s stores its checksum at 0x%X inside the protected span ending 0x%X",
			ErrBadZone, z.Name, z.ChecksumOffset, z.End)
	}
	switch z.Kind {
	case KindCRC16, KindCRC32:
	default:
		return fmt.Errorf("%w: %s kind %q", ErrBadZone, z.Name, z.Kind)
	}
	return nil
}

// Overlaps reports whether the half-open write [offset, offset+size)
// intersects the protected span.
func (z Zone) Overlaps(offset, size int) bool {
	return offset < z.End && offset+size > z.Start
}

// Mod describes one byte-range modification for affected-zone queries.
type Mod struct {
	Offset int
	Size   int
}

// Registry holds the checksum zone tables per ECU variant.
type Registry struct {
	byVariant map[string][]Zone
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byVariant: make(map[string][]Zone)}
}

// Register installs the zone table for a variant. Zones are kept in the
// given order; UpdateAllAffected recomputes them in that order, so variants
// whose trailing full-file zone covers the smaller spans must list it last.
func (r *Registry) Register(variant string, zs []Zone) error {
	if variant == "" {
		return fmt.Errorf("%w: empty variant name", ErrBadZone)
	}
	for _, z := range zs {
		if err := z.validate(); err != nil {
			return err
		}
	}
	out := make([]Zone, len(zs))
	copy(out, zs)
	r.byVariant[variant] = out
	return nil
}

// ZonesFor returns the zone table for variant.
func (r *Registry) ZonesFor(variant string) ([]Zone, error) {
	zs, ok := r.byVariant[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	return zs, nil
}

// Zone looks up a single zone by name.
func (r *Registry) Zone(variant, name string) (Zone, error) {
	zs, err := r.ZonesFor(variant)
	if err != nil {
		return Zone{}, err
	}
	for _, z := range zs {
		if z.Name == name {
			return z, nil
		}
	}
	return Zone{}, fmt.Errorf("%w: %q in variant %q", ErrUnknownZone, name, variant)
}

// Compute runs the zone's checksum over the protected span. CRC-16 results
// occupy the low 16 bits.
func Compute(img *image.Image, z Zone) (uint32, error) {
	data, err := img.Slice(z.Start, z.End-z.Start)
	if err != nil {
		return 0, fmt.Errorf("zone %s: %w", z.Name, err)
	}
	if z.Kind == KindCRC32 {
		return checksum.CRC32(data, 0), nil
	}
	return uint32(checksum.CRC16Device(data)), nil
}

// Stored reads the little-endian checksum word stored for the zone.
func Stored(img *image.Image, z Zone) (uint32, error) {
	if z.Kind == KindCRC32 {
		v, err := img.ReadU32LE(z.ChecksumOffset)
		if err != nil {
			return 0, fmt.Errorf("zone %s: %w", z.Name, err)
		}
		return v, nil
	}
	v, err := img.ReadU16LE(z.ChecksumOffset)
	if err != nil {
		return 0, fmt.Errorf("zone %s: %w", z.Name, err)
	}
	return uint32(v), nil
}

// Verify reports whether the stored checksum matches the computed one.
func Verify(img *image.Image, z Zone) (bool, error) {
	want, err := Compute(img, z)
	if err != nil {
		return false, err
	}
	got, err := Stored(img, z)
	if err != nil {
		return false, err
	}
	return got == want, nil
}

// RecomputeAndStore writes the freshly computed checksum back into the
// image, little-endian, sized per the zone kind.
func RecomputeAndStore(img *image.Image, z Zone) error {
	value, err := Compute(img, z)
	if err != nil {
		return err
	}
	if z.Kind == KindCRC32 {
		return img.WriteU32LE(z.ChecksumOffset, value)
	}
	return img.WriteU16LE(z.ChecksumOffset, uint16(value))
}

// ZonesOverlapping returns the variant's zones touched by a write of size
// bytes at offset.
func (r *Registry) ZonesOverlapping(offset, size int, variant string) ([]Zone, error) {
	zs, err := r.ZonesFor(variant)
	if err != nil {
		return nil, err
	}
	var out []Zone
	for _, z := range zs {
		if z.Overlaps(offset, size) {
			out = append(out, z)
		}
	}
	return out, nil
}

// UpdateAllAffected recomputes every zone overlapped by any modification
// exactly once, in registration order, and returns the count and names of
// the zones rewritten. Recomputing in registration order keeps a trailing
// full-file zone consistent with the smaller spans it covers.
func (r *Registry) UpdateAllAffected(img *image.Image, mods []Mod, variant string) (int, []string, error) {
	zs, err := r.ZonesFor(variant)
	if err != nil {
		return 0, nil, err
	}
	var names []string
	for _, z := range zs {
		touched := false
		for _, m := range mods {
			if z.Overlaps(m.Offset, m.Size) {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		if err := RecomputeAndStore(img, z); err != nil {
			return len(names), names, err
		}
		names = append(names, z.Name)
	}
	return len(names), names, nil
}
