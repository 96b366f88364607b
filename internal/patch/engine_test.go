package patch

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thebringerofdeath789/535xi-sub001/internal/image"
	"github.com/thebringerofdeath789/535xi-sub001/internal/safety"
	"github.com/thebringerofdeath789/535xi-sub001/internal/zones"
)

func testEngine(t *testing.T, audit *AuditLog) *Engine {
	t.Helper()
	zr := zones.NewRegistry()
	err := zr.Register("TEST", []zones.Zone{
		{Name: "cal", Start: 0x10000, End: 0x1FFFE, ChecksumOffset: 0x1FFFE, Kind: zones.KindCRC16},
		{Name: "full", Start: 0x0, End: 0x3FFFC, ChecksumOffset: 0x3FFFC, Kind: zones.KindCRC32},
	})
	if err != nil {
		t.Fatalf("zone Register failed: %v", err)
	}
	sr, err := safety.NewRegistry(
		safety.Geometry{ImageSize: 0x40000, ROMBase: 0x800000, CalBase: 0x810000},
		[]safety.ForbiddenRegion{
			{Name: "boot", Start: 0x0, End: 0x8000, Reason: "boot loader code", Space: safety.SpaceFile},
		},
		[]safety.MapDefinition{
			{Name: "wgdc", Offset: 0x12000, Space: safety.SpaceFile, Size: 512, Rows: 16, Cols: 16, Status: safety.StatusValidated},
			{Name: "reject_me", Offset: 0x14000, Space: safety.SpaceFile, Size: 64, Rows: 4, Cols: 8,
				Status: safety.StatusRejected, Warnings: []string{"layout unconfirmed"}},
		})
	if err != nil {
		t.Fatalf("safety NewRegistry failed: %v", err)
	}
	eng, err := NewEngine(Config{Safety: sr, Zones: zr, Variant: "TEST", Audit: audit})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return eng
}

func testImage(t *testing.T) *image.Image {
	t.Helper()
	img, err := image.New(0x40000)
	if err != nil {
		t.Fatalf("image.New failed: %v", err)
	}
	buf := img.Bytes()
	for i := range buf {
		buf[i] = byte(i >> 4)
	}
	return img
}

func TestNewMapPatchSizeMismatch(t *testing.T) {
	if _, err := NewMapPatch("bad", 0x12000, 4, []byte{1, 2}); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("error = %v, want ErrSizeMismatch", err)
	}
	if _, err := NewMapPatch("empty", 0x12000, 0, nil); !errors.Is(err, ErrEmptyPatch) {
		t.Fatalf("error = %v, want ErrEmptyPatch", err)
	}
	p, err := NewMapPatch("ok", 0x12000, 2, []byte{0xAB, 0xCD})
	if err != nil {
		t.Fatalf("NewMapPatch failed: %v", err)
	}
	if !p.Validate {
		t.Fatalf("new patches must default to Validate=true")
	}
}

func TestApplyOneUpdatesZone(t *testing.T) {
	eng := testEngine(t, nil)
	img := testImage(t)
	p, err := NewMapPatch("wgdc cell", 0x12010, 2, []byte{0xAB, 0xCD})
	if err != nil {
		t.Fatalf("NewMapPatch failed: %v", err)
	}
	res, err := eng.ApplyOne(img, p, true)
	if err != nil {
		t.Fatalf("ApplyOne failed: %v", err)
	}
	if res.State != StateCrcUpdated {
		t.Fatalf("state = %s, want %s", res.State, StateCrcUpdated)
	}
	if len(res.Zones) != 2 || res.Zones[0] != "cal" || res.Zones[1] != "full" {
		t.Fatalf("zones = %v, want [cal full]", res.Zones)
	}
	view, _ := img.Slice(0x12010, 2)
	if !bytes.Equal(view, []byte{0xAB, 0xCD}) {
		t.Fatalf("bytes not written: % X", view)
	}
	for _, name := range res.Zones {
		z, err := eng.zones.Zone("TEST", name)
		if err != nil {
			t.Fatalf("Zone lookup failed: %v", err)
		}
		ok, err := zones.Verify(img, z)
		if err != nil || !ok {
			t.Fatalf("zone %s does not verify (ok=%v err=%v)", name, ok, err)
		}
	}
}

func TestApplyOneRejectsForbidden(t *testing.T) {
	eng := testEngine(t, nil)
	img := testImage(t)
	before := append([]byte(nil), img.Bytes()...)
	p, err := NewMapPatch("into boot", 0x4000, 2, []byte{0xFF, 0xFF})
	if err != nil {
		t.Fatalf("NewMapPatch failed: %v", err)
	}
	res, err := eng.ApplyOne(img, p, true)
	if err != nil {
		t.Fatalf("ApplyOne returned engine error: %v", err)
	}
	if !res.Failed() {
		t.Fatalf("state = %s, want failed", res.State)
	}
	if !strings.Contains(res.Reason, "boot loader code") {
		t.Fatalf("reason does not carry region reason: %q", res.Reason)
	}
	if !bytes.Equal(before, img.Bytes()) {
		t.Fatalf("failed patch modified the image")
	}
}

func TestApplyOneEscapeHatchSkipsValidation(t *testing.T) {
	eng := testEngine(t, nil)
	img := testImage(t)
	p := MapPatch{Name: "forced", Offset: 0x14000, Size: 2, Data: []byte{0x01, 0x02}, Validate: false}
	res, err := eng.ApplyOne(img, p, false)
	if err != nil {
		t.Fatalf("ApplyOne failed: %v", err)
	}
	if res.State != StateApplied {
		t.Fatalf("state = %s, want %s", res.State, StateApplied)
	}
	// Bounds are still enforced by the image itself.
	p = MapPatch{Name: "oob", Offset: 0x3FFFF, Size: 2, Data: []byte{0x01, 0x02}, Validate: false}
	res, err = eng.ApplyOne(img, p, false)
	if err != nil {
		t.Fatalf("ApplyOne failed: %v", err)
	}
	if !res.Failed() {
		t.Fatalf("out-of-bounds unvalidated patch not failed")
	}
}

func TestApplySetBestEffort(t *testing.T) {
	eng := testEngine(t, nil)
	img := testImage(t)
	good, err := NewMapPatch("good", 0x12000, 2, []byte{0x11, 0x22})
	if err != nil {
		t.Fatalf("NewMapPatch failed: %v", err)
	}
	oversized := MapPatch{Name: "oversized", Offset: 0x3F000, Size: 0x2000, Data: make([]byte, 0x2000), Validate: true}
	rejected, err := NewMapPatch("rejected", 0x14000, 2, []byte{0x33, 0x44})
	if err != nil {
		t.Fatalf("NewMapPatch failed: %v", err)
	}
	set := &PatchSet{Name: "mixed", Patches: []MapPatch{good, oversized, rejected}}

	res, err := eng.ApplySet(img, set, true)
	if err != nil {
		t.Fatalf("ApplySet failed: %v", err)
	}
	if res.Applied != 1 || res.Failed != 2 {
		t.Fatalf("applied=%d failed=%d, want 1 and 2", res.Applied, res.Failed)
	}
	if len(res.Results) != 3 {
		t.Fatalf("results = %d, want 3 (order preserved)", len(res.Results))
	}
	if res.Results[0].Name != "good" || res.Results[1].Name != "oversized" || res.Results[2].Name != "rejected" {
		t.Fatalf("result order broken: %v", res.Results)
	}
	if !errorsContains(res.Results[1].Reason, "exceeds image length") {
		t.Fatalf("oversized reason = %q", res.Results[1].Reason)
	}
	if res.ZonesUpdated != 2 {
		t.Fatalf("zones updated = %d, want 2", res.ZonesUpdated)
	}
	if res.Results[0].State != StateCrcUpdated {
		t.Fatalf("good patch state = %s, want crc_updated", res.Results[0].State)
	}
	view, _ := img.Slice(0x14000, 2)
	if bytes.Equal(view, []byte{0x33, 0x44}) {
		t.Fatalf("rejected patch bytes were written")
	}
}

func errorsContains(s, sub string) bool {
	return strings.Contains(s, sub)
}

func TestApplySetStrictLeavesBufferUntouched(t *testing.T) {
	eng := testEngine(t, nil)
	img := testImage(t)
	before := append([]byte(nil), img.Bytes()...)
	good, _ := NewMapPatch("good", 0x12000, 2, []byte{0x11, 0x22})
	bad, _ := NewMapPatch("bad", 0x4000, 2, []byte{0xFF, 0xFF})
	set := &PatchSet{Name: "strict", Patches: []MapPatch{good, bad}}

	res, err := eng.ApplySetStrict(img, set, true)
	if err == nil {
		t.Fatalf("strict apply with failing patch did not error")
	}
	if res.Applied != 1 || res.Failed != 1 {
		t.Fatalf("applied=%d failed=%d, want 1 and 1", res.Applied, res.Failed)
	}
	if !bytes.Equal(before, img.Bytes()) {
		t.Fatalf("strict failure leaked writes into the caller buffer")
	}

	// An all-good set swaps in.
	set = &PatchSet{Name: "strict ok", Patches: []MapPatch{good}}
	if _, err := eng.ApplySetStrict(img, set, true); err != nil {
		t.Fatalf("strict apply failed: %v", err)
	}
	view, _ := img.Slice(0x12000, 2)
	if !bytes.Equal(view, []byte{0x11, 0x22}) {
		t.Fatalf("strict apply did not write: % X", view)
	}
}

func TestApplySetAuditTrail(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	eng := testEngine(t, NewAuditLog(logPath))
	img := testImage(t)
	p, _ := NewMapPatch("wgdc cell", 0x12010, 2, []byte{0xAB, 0xCD})
	if _, err := eng.ApplyOne(img, p, true); err != nil {
		t.Fatalf("ApplyOne failed: %v", err)
	}
	entries, err := ReadAuditLog(logPath)
	if err != nil {
		t.Fatalf("ReadAuditLog failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Patch != "wgdc cell" || e.Offset != 0x12010 {
		t.Fatalf("entry = %+v", e)
	}
	after, err := e.AfterBytes()
	if err != nil || !bytes.Equal(after, []byte{0xAB, 0xCD}) {
		t.Fatalf("after bytes = % X, %v", after, err)
	}
	beforeBytes, err := e.BeforeBytes()
	if err != nil || len(beforeBytes) != 2 {
		t.Fatalf("before bytes = % X, %v", beforeBytes, err)
	}
	if e.Ts.IsZero() {
		t.Fatalf("entry timestamp not set")
	}
}

func TestScenarioSingleZoneRecompute(t *testing.T) {
	// 2 MB image, four CRC-16 spans plus a trailing full-file CRC-32.
	// A 2-byte patch inside cal_main must leave the other three CRC-16
	// stored words untouched; the full-file zone necessarily covers the
	// patched bytes and is recomputed alongside.
	zr := zones.NewRegistry()
	zoneTable := []zones.Zone{
		{Name: "program1", Start: 0x010000, End: 0x03FFFE, ChecksumOffset: 0x03FFFE, Kind: zones.KindCRC16},
		{Name: "program2", Start: 0x040000, End: 0x06FFFE, ChecksumOffset: 0x06FFFE, Kind: zones.KindCRC16},
		{Name: "cal_main", Start: 0x070000, End: 0x07BFFE, ChecksumOffset: 0x07BFFE, Kind: zones.KindCRC16},
		{Name: "cal_aux", Start: 0x07C000, End: 0x07FFFE, ChecksumOffset: 0x07FFFE, Kind: zones.KindCRC16},
		{Name: "full_file", Start: 0x000000, End: 0x1FFFFC, ChecksumOffset: 0x1FFFFC, Kind: zones.KindCRC32},
	}
	if err := zr.Register("MSD80", zoneTable); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	sr, err := safety.NewRegistry(
		safety.Geometry{ImageSize: 0x200000, ROMBase: 0x800000, CalBase: 0x870000},
		[]safety.ForbiddenRegion{
			{Name: "boot", Start: 0x0, End: 0x8000, Reason: "boot loader code", Space: safety.SpaceFile},
		},
		[]safety.MapDefinition{
			{Name: "wgdc_base", Offset: 0x072000, Space: safety.SpaceFile, Size: 512, Rows: 16, Cols: 16, Status: safety.StatusValidated},
		})
	if err != nil {
		t.Fatalf("safety NewRegistry failed: %v", err)
	}
	eng, err := NewEngine(Config{Safety: sr, Zones: zr, Variant: "MSD80"})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	img, err := image.New(0x200000)
	if err != nil {
		t.Fatalf("image.New failed: %v", err)
	}
	buf := img.Bytes()
	for i := range buf {
		buf[i] = byte(i*13 + 7)
	}
	// Bring all zones into a verifying state first.
	for _, z := range zoneTable {
		if err := zones.RecomputeAndStore(img, z); err != nil {
			t.Fatalf("initial RecomputeAndStore(%s) failed: %v", z.Name, err)
		}
	}
	for _, z := range zoneTable {
		if ok, _ := zones.Verify(img, z); !ok {
			t.Fatalf("zone %s does not verify on load", z.Name)
		}
	}
	untouchedStored := map[string]uint32{}
	for _, name := range []string{"program1", "program2", "cal_aux"} {
		z, _ := zr.Zone("MSD80", name)
		v, _ := zones.Stored(img, z)
		untouchedStored[name] = v
	}

	p, err := NewMapPatch("wgdc_base[0][8]", 0x072010, 2, []byte{0x12, 0x34})
	if err != nil {
		t.Fatalf("NewMapPatch failed: %v", err)
	}
	set := &PatchSet{Name: "scenario", Patches: []MapPatch{p}}
	res, err := eng.ApplySet(img, set, true)
	if err != nil {
		t.Fatalf("ApplySet failed: %v", err)
	}
	if res.Applied != 1 || res.Failed != 0 {
		t.Fatalf("applied=%d failed=%d", res.Applied, res.Failed)
	}
	if len(res.ZoneNames) != 2 || res.ZoneNames[0] != "cal_main" || res.ZoneNames[1] != "full_file" {
		t.Fatalf("zones updated = %v, want [cal_main full_file]", res.ZoneNames)
	}
	for _, name := range []string{"program1", "program2", "cal_aux"} {
		z, _ := zr.Zone("MSD80", name)
		v, _ := zones.Stored(img, z)
		if v != untouchedStored[name] {
			t.Fatalf("zone %s stored value changed: 0x%X -> 0x%X", name, untouchedStored[name], v)
		}
		if ok, _ := zones.Verify(img, z); !ok {
			t.Fatalf("untouched zone %s no longer verifies", name)
		}
	}
	for _, name := range res.ZoneNames {
		z, _ := zr.Zone("MSD80", name)
		if ok, _ := zones.Verify(img, z); !ok {
			t.Fatalf("updated zone %s does not verify", name)
		}
	}
}
