package boost

import (
	"errors"
	"math"
	"testing"

	"github.com/thebringerofdeath789/535xi-sub001/internal/formula"
	"github.com/thebringerofdeath789/535xi-sub001/internal/image"
	"github.com/thebringerofdeath789/535xi-sub001/internal/patch"
	"github.com/thebringerofdeath789/535xi-sub001/internal/safety"
	"github.com/thebringerofdeath789/535xi-sub001/internal/zones"
)

func testRevision() *Revision {
	return &Revision{
		ID: "I8A0S",
		Tables: map[string]Table{
			"wgdc_base": {
				Def: safety.MapDefinition{
					Name: "wgdc_base", Offset: 0x12000, Space: safety.SpaceFile,
					Size: 512, Rows: 16, Cols: 16, Category: "boost", Status: safety.StatusValidated,
				},
				Conv:       formula.Formula{Forward: "x / 655.35", Inverse: "x * 655.35", Units: "%"},
				FileOffset: 0x12000,
			},
			"boost_ceiling": {
				Def: safety.MapDefinition{
					Name: "boost_ceiling", Offset: 0x13000, Space: safety.SpaceFile,
					Size: 32, Rows: 1, Cols: 16, Category: "boost", Status: safety.StatusValidated,
				},
				Conv:       formula.Formula{Forward: "x / 100 - 14.5", Inverse: "(x + 14.5) * 100", Units: "psi"},
				FileOffset: 0x13000,
			},
		},
	}
}

func testAdapter(t *testing.T) (*Adapter, *image.Image) {
	t.Helper()
	zr := zones.NewRegistry()
	err := zr.Register("MSD80", []zones.Zone{
		{Name: "cal", Start: 0x10000, End: 0x1FFFE, ChecksumOffset: 0x1FFFE, Kind: zones.KindCRC16},
	})
	if err != nil {
		t.Fatalf("zone Register failed: %v", err)
	}
	rev := testRevision()
	var defs []safety.MapDefinition
	for _, tbl := range rev.Tables {
		defs = append(defs, tbl.Def)
	}
	sr, err := safety.NewRegistry(
		safety.Geometry{ImageSize: 0x40000, ROMBase: 0x800000, CalBase: 0x810000},
		nil, defs)
	if err != nil {
		t.Fatalf("safety NewRegistry failed: %v", err)
	}
	eng, err := patch.NewEngine(patch.Config{Safety: sr, Zones: zr, Variant: "MSD80"})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	a, err := NewAdapter(rev, eng)
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	img, err := image.New(0x40000)
	if err != nil {
		t.Fatalf("image.New failed: %v", err)
	}
	return a, img
}

func TestCacheExplicitFallback(t *testing.T) {
	cache := NewCache()
	i8a0s := testRevision()
	cache.Put(i8a0s)

	rev, err := cache.Revision("I8A0S", nil)
	if err != nil || rev.ID != "I8A0S" {
		t.Fatalf("Revision(I8A0S) = %v, %v", rev, err)
	}
	if _, err := cache.Revision("IJE0S", nil); !errors.Is(err, ErrUnknownRevision) {
		t.Fatalf("error = %v, want ErrUnknownRevision", err)
	}
	rev, err = cache.Revision("IJE0S", i8a0s)
	if err != nil || rev.ID != "I8A0S" {
		t.Fatalf("fallback not used: %v, %v", rev, err)
	}
}

func TestReadWriteCellRoundTrip(t *testing.T) {
	a, img := testAdapter(t)
	res, err := a.WriteCell(img, "wgdc_base", 3, 5, 62.5, true)
	if err != nil {
		t.Fatalf("WriteCell failed: %v", err)
	}
	if res.Failed() {
		t.Fatalf("cell write failed: %s", res.Reason)
	}
	got, err := a.ReadCell(img, "wgdc_base", 3, 5)
	if err != nil {
		t.Fatalf("ReadCell failed: %v", err)
	}
	if math.Abs(got-62.5) > 0.01 {
		t.Fatalf("cell value = %g, want 62.5", got)
	}
	// Raw cell is big-endian.
	raw, err := img.ReadU16BE(0x12000 + (3*16+5)*2)
	if err != nil {
		t.Fatalf("ReadU16BE failed: %v", err)
	}
	if raw != 40959 && raw != 40960 {
		t.Fatalf("raw cell = %d, want ~40959", raw)
	}
	// The checksum zone containing the table verifies after the write.
	ok, err := zones.Verify(img, zones.Zone{
		Name: "cal", Start: 0x10000, End: 0x1FFFE, ChecksumOffset: 0x1FFFE, Kind: zones.KindCRC16,
	})
	if err != nil || !ok {
		t.Fatalf("cal zone does not verify after cell write (ok=%v err=%v)", ok, err)
	}
}

func TestCellBounds(t *testing.T) {
	a, img := testAdapter(t)
	if _, err := a.ReadCell(img, "wgdc_base", 16, 0); !errors.Is(err, ErrCellOutOfRange) {
		t.Fatalf("error = %v, want ErrCellOutOfRange", err)
	}
	if _, err := a.ReadCell(img, "wgdc_base", 0, -1); !errors.Is(err, ErrCellOutOfRange) {
		t.Fatalf("error = %v, want ErrCellOutOfRange", err)
	}
	if _, err := a.ReadCell(img, "nope", 0, 0); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("error = %v, want ErrUnknownTable", err)
	}
}

func TestReadTableShape(t *testing.T) {
	a, img := testAdapter(t)
	tbl, err := a.ReadTable(img, "boost_ceiling")
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(tbl) != 1 || len(tbl[0]) != 16 {
		t.Fatalf("table shape = %dx%d, want 1x16", len(tbl), len(tbl[0]))
	}
	// Zero raw cells decode to the formula's offset term.
	if math.Abs(tbl[0][0]-(-14.5)) > 0.01 {
		t.Fatalf("zero cell = %g, want -14.5", tbl[0][0])
	}
}

func TestTablePatchLayout(t *testing.T) {
	a, _ := testAdapter(t)
	values := make([][]float64, 1)
	values[0] = make([]float64, 16)
	for c := range values[0] {
		values[0][c] = float64(c) // psi
	}
	p, err := a.TablePatch("boost_ceiling", values)
	if err != nil {
		t.Fatalf("TablePatch failed: %v", err)
	}
	if p.Offset != 0x13000 || p.Size != 32 {
		t.Fatalf("patch span = [0x%X, %d], want [0x13000, 32]", p.Offset, p.Size)
	}
	// Cell 3 encodes (3 + 14.5) * 100 = 1750 big-endian.
	if p.Data[6] != 0x06 || p.Data[7] != 0xD6 {
		t.Fatalf("cell 3 bytes = % X, want 06 D6", p.Data[6:8])
	}
	// Shape mismatches are rejected.
	if _, err := a.TablePatch("boost_ceiling", values[:0]); !errors.Is(err, ErrCellOutOfRange) {
		t.Fatalf("error = %v, want ErrCellOutOfRange", err)
	}
}
