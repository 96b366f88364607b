// Package boost adapts the core building blocks to the boost-control table
// family: wastegate duty cycle, load target and boost ceiling tables, whose
// locations are discovered per DME software revision. Cells are 16-bit
// big-endian raw values converted through per-table formulas.
package boost

import (
	"errors"
	"fmt"

	"github.com/thebringerofdeath789/535xi-sub001/internal/formula"
	"github.com/thebringerofdeath789/535xi-sub001/internal/image"
	"github.com/thebringerofdeath789/535xi-sub001/internal/patch"
	"github.com/thebringerofdeath789/535xi-sub001/internal/safety"
)

const cellSize = 2

var (
	ErrUnknownRevision = errors.New("unknown software revision")
	ErrUnknownTable    = errors.New("unknown boost table")
	ErrCellOutOfRange  = errors.New("table cell coordinates out of range")
)

// Table binds a map definition to its unit-conversion formula.
type Table struct {
	Def  safety.MapDefinition
	Conv formula.Formula
	// FileOffset is the normalized file-relative offset of the table.
	FileOffset int
}

// cells returns rows*cols, the cell count of the table.
func (t Table) cells() int {
	return t.Def.Rows * t.Def.Cols
}

// Revision is the table set discovered for one DME software revision.
type Revision struct {
	ID     string
	Tables map[string]Table
}

// Cache holds revisions, keyed by software version string. The cache is an
// explicit object owned by the caller; there is no package-level state.
type Cache struct {
	revisions map[string]*Revision
}

// NewCache returns an empty revision cache.
func NewCache() *Cache {
	return &Cache{revisions: make(map[string]*Revision)}
}

// Put stores a revision in the cache.
func (c *Cache) Put(rev *Revision) {
	c.revisions[rev.ID] = rev
}

// Revision returns the cached table set for id. When id is absent and a
// fallback is supplied, the fallback is returned; the fallback reference is
// always passed explicitly by the caller.
func (c *Cache) Revision(id string, fallback *Revision) (*Revision, error) {
	if rev, ok := c.revisions[id]; ok {
		return rev, nil
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRevision, id)
}

// Adapter reads and edits one revision's boost tables through the patch
// engine so that safety checks and checksum updates always apply.
type Adapter struct {
	rev    *Revision
	engine *patch.Engine
}

// NewAdapter wires an adapter to a revision and an engine.
func NewAdapter(rev *Revision, engine *patch.Engine) (*Adapter, error) {
	if rev == nil {
		return nil, errors.New("nil revision")
	}
	if engine == nil {
		return nil, errors.New("nil patch engine")
	}
	return &Adapter{rev: rev, engine: engine}, nil
}

// Table returns the named table of the adapter's revision.
func (a *Adapter) Table(name string) (Table, error) {
	t, ok := a.rev.Tables[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q in revision %s", ErrUnknownTable, name, a.rev.ID)
	}
	return t, nil
}

// TableNames lists the revision's tables.
func (a *Adapter) TableNames() []string {
	names := make([]string, 0, len(a.rev.Tables))
	for name := range a.rev.Tables {
		names = append(names, name)
	}
	return names
}

func (t Table) cellOffset(row, col int) (int, error) {
	if row < 0 || row >= t.Def.Rows || col < 0 || col >= t.Def.Cols {
		return 0, fmt.Errorf("%w: [%d,%d] in %dx%d table %q",
			ErrCellOutOfRange, row, col, t.Def.Rows, t.Def.Cols, t.Def.Name)
	}
	return t.FileOffset + (row*t.Def.Cols+col)*cellSize, nil
}

// ReadCell returns the engineering-unit value of one cell.
func (a *Adapter) ReadCell(img *image.Image, name string, row, col int) (float64, error) {
	t, err := a.Table(name)
	if err != nil {
		return 0, err
	}
	off, err := t.cellOffset(row, col)
	if err != nil {
		return 0, err
	}
	raw, err := img.ReadU16BE(off)
	if err != nil {
		return 0, err
	}
	return formula.RawToReal(raw, t.Conv)
}

// ReadTable returns the whole table in engineering units, rows by cols.
func (a *Adapter) ReadTable(img *image.Image, name string) ([][]float64, error) {
	t, err := a.Table(name)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, t.Def.Rows)
	for r := 0; r < t.Def.Rows; r++ {
		out[r] = make([]float64, t.Def.Cols)
		for c := 0; c < t.Def.Cols; c++ {
			v, err := a.ReadCell(img, name, r, c)
			if err != nil {
				return nil, err
			}
			out[r][c] = v
		}
	}
	return out, nil
}

// CellPatch builds a validated single-cell patch carrying the raw encoding
// of the engineering-unit value. The patch is not applied.
func (a *Adapter) CellPatch(name string, row, col int, real float64) (patch.MapPatch, error) {
	t, err := a.Table(name)
	if err != nil {
		return patch.MapPatch{}, err
	}
	off, err := t.cellOffset(row, col)
	if err != nil {
		return patch.MapPatch{}, err
	}
	raw, err := formula.RealToRaw(real, t.Conv)
	if err != nil {
		return patch.MapPatch{}, err
	}
	data := []byte{byte(raw >> 8), byte(raw)}
	p, err := patch.NewMapPatch(fmt.Sprintf("%s[%d][%d]", name, row, col), off, cellSize, data)
	if err != nil {
		return patch.MapPatch{}, err
	}
	p.Category = t.Def.Category
	p.Description = fmt.Sprintf("%g %s", real, t.Conv.Units)
	return p, nil
}

// WriteCell applies a single-cell edit through the patch engine,
// recomputing affected checksum zones when updateCRC is set.
func (a *Adapter) WriteCell(img *image.Image, name string, row, col int, real float64, updateCRC bool) (patch.PatchResult, error) {
	p, err := a.CellPatch(name, row, col, real)
	if err != nil {
		return patch.PatchResult{}, err
	}
	return a.engine.ApplyOne(img, p, updateCRC)
}

// TablePatch builds one patch covering the whole table with the raw
// encoding of values, which must be Rows x Cols.
func (a *Adapter) TablePatch(name string, values [][]float64) (patch.MapPatch, error) {
	t, err := a.Table(name)
	if err != nil {
		return patch.MapPatch{}, err
	}
	if len(values) != t.Def.Rows {
		return patch.MapPatch{}, fmt.Errorf("%w: %d rows for %dx%d table %q",
			ErrCellOutOfRange, len(values), t.Def.Rows, t.Def.Cols, name)
	}
	data := make([]byte, t.cells()*cellSize)
	for r, rowVals := range values {
		if len(rowVals) != t.Def.Cols {
			return patch.MapPatch{}, fmt.Errorf("%w: row %d has %d cols for %dx%d table %q",
				ErrCellOutOfRange, r, len(rowVals), t.Def.Rows, t.Def.Cols, name)
		}
		for c, real := range rowVals {
			raw, err := formula.RealToRaw(real, t.Conv)
			if err != nil {
				return patch.MapPatch{}, err
			}
			i := (r*t.Def.Cols + c) * cellSize
			data[i] = byte(raw >> 8)
			data[i+1] = byte(raw)
		}
	}
	p, err := patch.NewMapPatch(name, t.FileOffset, len(data), data)
	if err != nil {
		return patch.MapPatch{}, err
	}
	p.Category = t.Def.Category
	p.Description = fmt.Sprintf("full %s rewrite (%s)", name, t.Conv.Units)
	return p, nil
}
