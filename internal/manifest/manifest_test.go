package manifest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/thebringerofdeath789/535xi-sub001/internal/image"
	"github.com/thebringerofdeath789/535xi-sub001/internal/safety"
	"github.com/thebringerofdeath789/535xi-sub001/internal/zones"
)

func testFixture(t *testing.T) (*image.Image, *safety.Registry, *zones.Registry) {
	t.Helper()
	zr := zones.NewRegistry()
	err := zr.Register("MSD80", []zones.Zone{
		{Name: "cal", Start: 0x10000, End: 0x1FFFE, ChecksumOffset: 0x1FFFE, Kind: zones.KindCRC16},
		{Name: "full", Start: 0x00000, End: 0x3FFFC, ChecksumOffset: 0x3FFFC, Kind: zones.KindCRC32},
	})
	if err != nil {
		t.Fatalf("zone Register failed: %v", err)
	}
	sr, err := safety.NewRegistry(
		safety.Geometry{ImageSize: 0x40000, ROMBase: 0x800000, CalBase: 0x810000},
		nil,
		[]safety.MapDefinition{{
			Name: "wgdc_base", Offset: 0x12000, Space: safety.SpaceFile,
			Size: 512, Rows: 16, Cols: 16, Category: "boost", Status: safety.StatusValidated,
		}})
	if err != nil {
		t.Fatalf("safety NewRegistry failed: %v", err)
	}
	buf := make([]byte, 0x40000)
	for i := range buf {
		buf[i] = byte(i*11 + 5)
	}
	img, err := image.FromBytes(buf)
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	return img, sr, zr
}

func TestBuildCoordinatesAndZones(t *testing.T) {
	img, sr, zr := testFixture(t)
	m, err := Build(img, sr, zr, "MSD80", "wgdc_base", "WBANV93558C123456")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if m.MapOffset != 0x12000 {
		t.Fatalf("map offset = 0x%X, want 0x12000", m.MapOffset)
	}
	if m.AbsoluteOffset != 0x812000 {
		t.Fatalf("absolute offset = 0x%X, want 0x812000", m.AbsoluteOffset)
	}
	if m.Length != 512 || m.Rows != 16 || m.Cols != 16 {
		t.Fatalf("shape = %d bytes %dx%d", m.Length, m.Rows, m.Cols)
	}
	if len(m.Crc32) != 8 || m.Crc32 != strings.ToUpper(m.Crc32) {
		t.Fatalf("crc32 = %q, want 8 uppercase hex digits", m.Crc32)
	}
	if len(m.AffectedZones) != 2 || m.AffectedZones[0].Name != "cal" || m.AffectedZones[1].Name != "full" {
		t.Fatalf("affected zones = %+v, want [cal full]", m.AffectedZones)
	}
	if m.AffectedZones[1].CrcType != "crc32" {
		t.Fatalf("full zone crc type = %s", m.AffectedZones[1].CrcType)
	}
}

func TestBuildUnknownMap(t *testing.T) {
	img, sr, zr := testFixture(t)
	if _, err := Build(img, sr, zr, "MSD80", "nope", ""); err == nil {
		t.Fatal("expected error for unknown map")
	}
}

func TestSaveLoadVerify(t *testing.T) {
	img, sr, zr := testFixture(t)
	m, err := Build(img, sr, zr, "MSD80", "wgdc_base", "")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "wgdc_base.manifest.json")
	if err := Save(m, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.MapName != m.MapName || got.Crc32 != m.Crc32 || len(got.AffectedZones) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	ok, err := got.VerifyAgainst(img)
	if err != nil || !ok {
		t.Fatalf("VerifyAgainst on untouched image = %v, %v", ok, err)
	}
	// One flipped byte inside the map breaks verification.
	if err := img.WriteBytes(0x12010, []byte{0xFF}); err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}
	ok, err = got.VerifyAgainst(img)
	if err != nil || ok {
		t.Fatalf("VerifyAgainst after edit = %v, %v, want false", ok, err)
	}
}

func TestLoadRejectsEmptyManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := Save(Manifest{}, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for manifest without coordinates")
	}
}
