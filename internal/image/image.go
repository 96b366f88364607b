// Package image provides the calibration image buffer type. An Image wraps a
// fixed-length byte buffer and enforces bounds on every byte-range access;
// its length never changes after creation.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"
)

// ValidSizes lists the calibration image lengths produced by supported DME
// variants.
var ValidSizes = []int{0x40000, 0x80000, 0x100000, 0x200000}

var (
	ErrBadSize     = errors.New("unsupported calibration image size")
	ErrOutOfBounds = errors.New("byte range outside image bounds")
)

// Image is a mutable calibration image buffer. It is exclusively owned by
// whichever call is currently mutating it; the type performs no internal
// locking.
type Image struct {
	data []byte
}

// New allocates a zero-filled image of the given size.
func New(size int) (*Image, error) {
	if !sizeValid(size) {
		return nil, fmt.Errorf("%w: 0x%X", ErrBadSize, size)
	}
	return &Image{data: make([]byte, size)}, nil
}

// FromBytes wraps buf without copying. The caller hands over ownership of
// the buffer for the lifetime of the Image.
func FromBytes(buf []byte) (*Image, error) {
	if !sizeValid(len(buf)) {
		return nil, fmt.Errorf("%w: 0x%X", ErrBadSize, len(buf))
	}
	return &Image{data: buf}, nil
}

// Load reads a calibration image from disk.
func Load(path string) (*Image, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := FromBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func sizeValid(size int) bool {
	for _, s := range ValidSizes {
		if size == s {
			return true
		}
	}
	return false
}

// Len returns the fixed image length.
func (im *Image) Len() int {
	return len(im.data)
}

// Bytes exposes the underlying buffer. Mutating the returned slice mutates
// the image.
func (im *Image) Bytes() []byte {
	return im.data
}

func (im *Image) checkRange(offset, size int) error {
	if offset < 0 || size < 0 || offset+size > len(im.data) {
		return fmt.Errorf("%w: [0x%X, 0x%X) in image of 0x%X bytes",
			ErrOutOfBounds, offset, offset+size, len(im.data))
	}
	return nil
}

// Slice returns a view of image[offset : offset+size].
func (im *Image) Slice(offset, size int) ([]byte, error) {
	if err := im.checkRange(offset, size); err != nil {
		return nil, err
	}
	return im.data[offset : offset+size], nil
}

// WriteBytes copies p into the image starting at offset.
func (im *Image) WriteBytes(offset int, p []byte) error {
	if err := im.checkRange(offset, len(p)); err != nil {
		return err
	}
	copy(im.data[offset:], p)
	return nil
}

// ReadU16BE reads a big-endian 16-bit table cell.
func (im *Image) ReadU16BE(offset int) (uint16, error) {
	if err := im.checkRange(offset, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(im.data[offset:]), nil
}

// WriteU16BE writes a big-endian 16-bit table cell.
func (im *Image) WriteU16BE(offset int, v uint16) error {
	if err := im.checkRange(offset, 2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(im.data[offset:], v)
	return nil
}

// ReadU16LE reads a little-endian 16-bit stored checksum word.
func (im *Image) ReadU16LE(offset int) (uint16, error) {
	if err := im.checkRange(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(im.data[offset:]), nil
}

// WriteU16LE writes a little-endian 16-bit stored checksum word.
func (im *Image) WriteU16LE(offset int, v uint16) error {
	if err := im.checkRange(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(im.data[offset:], v)
	return nil
}

// ReadU32LE reads a little-endian 32-bit stored checksum word.
func (im *Image) ReadU32LE(offset int) (uint32, error) {
	if err := im.checkRange(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(im.data[offset:]), nil
}

// WriteU32LE writes a little-endian 32-bit stored checksum word.
func (im *Image) WriteU32LE(offset int, v uint32) error {
	if err := im.checkRange(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(im.data[offset:], v)
	return nil
}

// Clone returns an independent copy of the image.
func (im *Image) Clone() *Image {
	buf := make([]byte, len(im.data))
	copy(buf, im.data)
	return &Image{data: buf}
}

// CopyFrom overwrites this image with the contents of other. Both images
// must have the same length.
func (im *Image) CopyFrom(other *Image) error {
	if len(im.data) != len(other.data) {
		return fmt.Errorf("%w: 0x%X vs 0x%X", ErrBadSize, len(im.data), len(other.data))
	}
	copy(im.data, other.data)
	return nil
}

// WriteFile persists the image to disk.
func (im *Image) WriteFile(path string) error {
	return os.WriteFile(path, im.data, 0o644)
}

// Backup writes a timestamped copy of the file at path next to it and
// returns the backup file name.
func Backup(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	name := path + ".backup_" + time.Now().Format("20060102_150405")
	if err := os.WriteFile(name, buf, 0o644); err != nil {
		return "", err
	}
	return name, nil
}
