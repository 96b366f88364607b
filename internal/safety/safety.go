// Package safety is the gate consulted before every write to a calibration
// image. It normalizes offsets across the coordinate conventions used by map
// definitions, and rejects any write that leaves the image, touches a
// forbidden region, or lands on a map known to be rejected.
//
// A Registry is built once from static data and is read-only afterwards; it
// may be consulted concurrently without synchronization.
package safety

import (
	"errors"
	"fmt"
)

// OffsetSpace tags how a stored offset is to be interpreted. Offsets are
// tagged at configuration-load time; normalization is a total function, not
// a magnitude guess.
type OffsetSpace string

const (
	// SpaceAbsolute is a device address as seen on the processor bus.
	SpaceAbsolute OffsetSpace = "absolute"
	// SpaceFile is a byte offset into the calibration image file.
	SpaceFile OffsetSpace = "file"
	// SpaceCal is an offset relative to the calibration area base.
	SpaceCal OffsetSpace = "cal"
	// SpaceUntagged marks legacy definitions whose convention has not been
	// re-audited. Forbidden regions carrying it are tested under both the
	// file-relative and calibration-relative readings.
	SpaceUntagged OffsetSpace = ""
)

var (
	ErrOffsetOutOfRange = errors.New("offset has no valid file-relative interpretation")
	ErrOutOfBounds      = errors.New("write range exceeds image length")
	ErrForbiddenRegion  = errors.New("write overlaps forbidden region")
	ErrRejectedMap      = errors.New("write overlaps rejected map definition")
	ErrBadGeometry      = errors.New("invalid variant geometry")
)

// Geometry describes the address layout of one ECU variant.
type Geometry struct {
	// ImageSize is the calibration image length in bytes.
	ImageSize int
	// ROMBase is the absolute device address of file offset zero.
	ROMBase int64
	// CalBase is the absolute device address of the calibration area.
	CalBase int64
}

// CalFileOffset returns the file-relative offset of the calibration area.
func (g Geometry) CalFileOffset() int64 {
	return g.CalBase - g.ROMBase
}

func (g Geometry) validate() error {
	if g.ImageSize <= 0 {
		return fmt.Errorf("%w: image size 0x%X", ErrBadGeometry, g.ImageSize)
	}
	if g.CalBase < g.ROMBase || g.CalFileOffset() >= int64(g.ImageSize) {
		return fmt.Errorf("%w: calibration base 0x%X outside ROM [0x%X, 0x%X)",
			ErrBadGeometry, g.CalBase, g.ROMBase, g.ROMBase+int64(g.ImageSize))
	}
	return nil
}

// ForbiddenRegion is a byte range that must never be written, regardless of
// checksum validity. Zero tolerance; there is no override.
type ForbiddenRegion struct {
	Name   string
	Start  int64
	End    int64
	Reason string
	Space  OffsetSpace
}

// MapStatus classifies how much a map definition is trusted.
type MapStatus string

const (
	StatusValidated   MapStatus = "validated"
	StatusRejected    MapStatus = "rejected"
	StatusConditional MapStatus = "conditional"
)

// MapDefinition describes a named tunable table in the image.
type MapDefinition struct {
	Name       string
	Offset     int64
	Space      OffsetSpace
	Size       int
	Rows       int
	Cols       int
	Category   string
	Status     MapStatus
	Confidence float64
	Warnings   []string
}

// Registry answers "is it safe to touch bytes [offset, offset+size)?" for
// one ECU variant.
type Registry struct {
	geom      Geometry
	forbidden []ForbiddenRegion
	maps      []MapDefinition
	// normalized file-relative map spans, parallel to maps
	mapStart []int
	mapEnd   []int
}

// NewRegistry builds the registry from static configuration. Map definition
// offsets are normalized into file coordinates here, once.
func NewRegistry(geom Geometry, forbidden []ForbiddenRegion, maps []MapDefinition) (*Registry, error) {
	if err := geom.validate(); err != nil {
		return nil, err
	}
	r := &Registry{
		geom:      geom,
		forbidden: append([]ForbiddenRegion(nil), forbidden...),
		maps:      append([]MapDefinition(nil), maps...),
	}
	for _, fr := range r.forbidden {
		if fr.Start >= fr.End {
			return nil, fmt.Errorf("forbidden region %q has empty span [0x%X, 0x%X)", fr.Name, fr.Start, fr.End)
		}
		if fr.Reason == "" {
			return nil, fmt.Errorf("forbidden region %q has no reason", fr.Name)
		}
	}
	r.mapStart = make([]int, len(r.maps))
	r.mapEnd = make([]int, len(r.maps))
	for i, m := range r.maps {
		start, err := r.Normalize(m.Offset, m.Space)
		if err != nil {
			return nil, fmt.Errorf("map %q: %w", m.Name, err)
		}
		if m.Size <= 0 || start+m.Size > geom.ImageSize {
			return nil, fmt.Errorf("map %q: span [0x%X, 0x%X) exceeds image", m.Name, start, start+m.Size)
		}
		r.mapStart[i] = start
		r.mapEnd[i] = start + m.Size
	}
	return r, nil
}

// Geometry returns the variant geometry the registry was built with.
func (r *Registry) Geometry() Geometry {
	return r.geom
}

// Maps returns the registered map definitions.
func (r *Registry) Maps() []MapDefinition {
	return r.maps
}

// Forbidden returns the registered forbidden regions.
func (r *Registry) Forbidden() []ForbiddenRegion {
	return r.forbidden
}

// Normalize converts an offset in the given space into file-relative
// coordinates. Untagged offsets are treated as file-relative; the dual
// interpretation applies only to forbidden-region checks.
func (r *Registry) Normalize(offset int64, space OffsetSpace) (int, error) {
	var fileOff int64
	switch space {
	case SpaceAbsolute:
		fileOff = offset - r.geom.ROMBase
	case SpaceCal:
		fileOff = offset + r.geom.CalFileOffset()
	case SpaceFile, SpaceUntagged:
		fileOff = offset
	default:
		return 0, fmt.Errorf("%w: unknown offset space %q", ErrOffsetOutOfRange, space)
	}
	if fileOff < 0 || fileOff >= int64(r.geom.ImageSize) {
		return 0, fmt.Errorf("%w: 0x%X (%s) -> file offset 0x%X, image is 0x%X bytes",
			ErrOffsetOutOfRange, offset, spaceLabel(space), fileOff, r.geom.ImageSize)
	}
	return int(fileOff), nil
}

// FileToAbsolute converts a file-relative offset to a device address.
func (r *Registry) FileToAbsolute(offset int) int64 {
	return int64(offset) + r.geom.ROMBase
}

func spaceLabel(space OffsetSpace) string {
	if space == SpaceUntagged {
		return "untagged"
	}
	return string(space)
}

// forbiddenSpans yields the file-relative span readings of a forbidden
// region. Regions tagged with a space yield one reading; untagged legacy
// regions yield both the file-relative and calibration-relative readings
// until the data is re-audited.
func (r *Registry) forbiddenSpans(fr ForbiddenRegion) [][2]int64 {
	switch fr.Space {
	case SpaceAbsolute:
		return [][2]int64{{fr.Start - r.geom.ROMBase, fr.End - r.geom.ROMBase}}
	case SpaceCal:
		base := r.geom.CalFileOffset()
		return [][2]int64{{fr.Start + base, fr.End + base}}
	case SpaceFile:
		return [][2]int64{{fr.Start, fr.End}}
	default:
		base := r.geom.CalFileOffset()
		return [][2]int64{
			{fr.Start, fr.End},
			{fr.Start + base, fr.End + base},
		}
	}
}

// IsSafe validates a prospective write of size bytes at the file-relative
// offset. It returns nil when the write is acceptable, or an error wrapping
// one of ErrOutOfBounds, ErrForbiddenRegion or ErrRejectedMap naming what
// was hit.
func (r *Registry) IsSafe(offset, size int) error {
	if offset < 0 || size <= 0 {
		return fmt.Errorf("%w: [0x%X, 0x%X)", ErrOutOfBounds, offset, offset+size)
	}
	end := int64(offset) + int64(size)
	if end > int64(r.geom.ImageSize) {
		return fmt.Errorf("%w: [0x%X, 0x%X) in image of 0x%X bytes",
			ErrOutOfBounds, offset, end, r.geom.ImageSize)
	}
	for _, fr := range r.forbidden {
		for _, span := range r.forbiddenSpans(fr) {
			if int64(offset) < span[1] && end > span[0] {
				return fmt.Errorf("%w: %q [0x%X, 0x%X): %s",
					ErrForbiddenRegion, fr.Name, span[0], span[1], fr.Reason)
			}
		}
	}
	for i, m := range r.maps {
		if m.Status != StatusRejected {
			continue
		}
		if offset < r.mapEnd[i] && int(end) > r.mapStart[i] {
			reason := "definition rejected during validation"
			if len(m.Warnings) > 0 {
				reason = m.Warnings[0]
			}
			return fmt.Errorf("%w: %q [0x%X, 0x%X): %s",
				ErrRejectedMap, m.Name, r.mapStart[i], r.mapEnd[i], reason)
		}
	}
	return nil
}

// IsSafeIn normalizes offset from the given space before running IsSafe.
func (r *Registry) IsSafeIn(offset int64, space OffsetSpace, size int) error {
	fileOff, err := r.Normalize(offset, space)
	if err != nil {
		return err
	}
	return r.IsSafe(fileOff, size)
}

// Lookup returns the map definition containing the file-relative offset, if
// any. Used for reporting; it applies the same normalization the registry
// applied at load time.
func (r *Registry) Lookup(offset int) (MapDefinition, bool) {
	for i, m := range r.maps {
		if offset >= r.mapStart[i] && offset < r.mapEnd[i] {
			return m, true
		}
	}
	return MapDefinition{}, false
}

// MapByName returns the named map definition together with its normalized
// file-relative offset.
func (r *Registry) MapByName(name string) (MapDefinition, int, bool) {
	for i, m := range r.maps {
		if m.Name == name {
			return m, r.mapStart[i], true
		}
	}
	return MapDefinition{}, 0, false
}
