package profile

import "github.com/thebringerofdeath789/535xi-sub001/internal/formula"

// Built-in profiles for the Siemens MSD80/MSD81 DME family (BMW N54).
// Zone spans and checksum locations come from the factory flash layout;
// map definitions carry the validation status assigned during bench work.

func msd80() *Profile {
	pct := formula.Formula{Forward: "x / 655.35", Inverse: "x * 655.35", Units: "%"}
	return &Profile{
		Variant:     "MSD80",
		Revision:    "I8A0S",
		Description: "MSD80 DME, 2MB full binary, I8A0S software",
		Geometry: GeometryDef{
			ImageSize: 0x200000,
			ROMBase:   0x800000,
			CalBase:   0x870000,
		},
		Zones: []ZoneDef{
			{Name: "program1", Start: 0x010000, End: 0x03FFFE, ChecksumOffset: 0x03FFFE, Type: "crc16", Description: "program flash bank 1"},
			{Name: "program2", Start: 0x040000, End: 0x06FFFE, ChecksumOffset: 0x06FFFE, Type: "crc16", Description: "program flash bank 2"},
			{Name: "cal_main", Start: 0x070000, End: 0x07BFFE, ChecksumOffset: 0x07BFFE, Type: "crc16", Description: "main calibration area"},
			{Name: "cal_aux", Start: 0x07C000, End: 0x07FFFE, ChecksumOffset: 0x07FFFE, Type: "crc16", Description: "auxiliary calibration area"},
			// Covers the smaller zones; listed last so it is recomputed last.
			{Name: "full_file", Start: 0x000000, End: 0x1FFFFC, ChecksumOffset: 0x1FFFFC, Type: "crc32", Description: "whole-file integrity word"},
		},
		Forbidden: []RegionDef{
			{Name: "boot_sector", Start: 0x000000, End: 0x008000, Space: "file",
				Reason: "boot loader, the DME will not start if altered"},
			{Name: "flash_counter", Start: 0x008000, End: 0x008200, Space: "file",
				Reason: "programming counter maintained by the flash tool"},
			{Name: "crc_program1", Start: 0x03FFFE, End: 0x040000, Space: "file",
				Reason: "stored checksum word, written only by zone recomputation"},
			{Name: "crc_program2", Start: 0x06FFFE, End: 0x070000, Space: "file",
				Reason: "stored checksum word, written only by zone recomputation"},
			{Name: "crc_cal_main", Start: 0x07BFFE, End: 0x07C000, Space: "file",
				Reason: "stored checksum word, written only by zone recomputation"},
			{Name: "crc_cal_aux", Start: 0x07FFFE, End: 0x080000, Space: "file",
				Reason: "stored checksum word, written only by zone recomputation"},
			{Name: "crc_full", Start: 0x1FFFFC, End: 0x200000, Space: "file",
				Reason: "stored checksum word, written only by zone recomputation"},
			// Space deliberately left untagged until the donor notes are
			// re-audited; checked under both file and cal readings.
			{Name: "legacy_immo", Start: 0x00A000, End: 0x00A400,
				Reason: "EWS pairing data from unaudited legacy notes"},
		},
		Maps: []MapDef{
			{Name: "wgdc_base", Offset: 0x072000, Space: "file", Size: 512, Rows: 16, Cols: 16,
				Category: "boost", Status: "validated", Confidence: 0.97,
				Formula: &pct},
			{Name: "load_target", Offset: 0x072800, Space: "file", Size: 512, Rows: 16, Cols: 16,
				Category: "boost", Status: "validated", Confidence: 0.95,
				Formula: &formula.Formula{Forward: "x / 10", Inverse: "x * 10", Units: "mg/stk"}},
			{Name: "boost_ceiling", Offset: 0x073000, Space: "file", Size: 32, Rows: 1, Cols: 16,
				Category: "boost", Status: "validated", Confidence: 0.99,
				Formula: &formula.Formula{Forward: "x / 100 - 14.5", Inverse: "(x + 14.5) * 100", Units: "psi"}},
			{Name: "spool_rate", Offset: 0x003400, Space: "cal", Size: 128, Rows: 4, Cols: 16,
				Category: "boost", Status: "validated", Confidence: 0.90,
				Formula: &formula.Formula{Forward: "x / 128", Inverse: "x * 128", Units: "-"}},
			{Name: "iat_boost_comp", Offset: 0x873800, Space: "absolute", Size: 128, Rows: 8, Cols: 8,
				Category: "boost", Status: "conditional", Confidence: 0.60,
				Warnings: []string{"axis source unconfirmed against factory data"},
				Formula:  &pct},
			{Name: "burble_map", Offset: 0x074000, Space: "file", Size: 256,
				Category: "exhaust", Status: "rejected", Confidence: 0.20,
				Warnings: []string{"offset conflicts with injector trim block on I8A0S"}},
		},
	}
}

func msd81() *Profile {
	pct := formula.Formula{Forward: "x / 655.35", Inverse: "x * 655.35", Units: "%"}
	return &Profile{
		Variant:     "MSD81",
		Revision:    "IJE0S",
		Description: "MSD81 DME, 2MB full binary, IJE0S software",
		Geometry: GeometryDef{
			ImageSize: 0x200000,
			ROMBase:   0x800000,
			CalBase:   0x870000,
		},
		Zones: []ZoneDef{
			{Name: "program1", Start: 0x010000, End: 0x03FFFE, ChecksumOffset: 0x03FFFE, Type: "crc16", Description: "program flash bank 1"},
			{Name: "program2", Start: 0x040000, End: 0x06FFFE, ChecksumOffset: 0x06FFFE, Type: "crc16", Description: "program flash bank 2"},
			{Name: "cal_main", Start: 0x070000, End: 0x07BFFE, ChecksumOffset: 0x07BFFE, Type: "crc16", Description: "main calibration area"},
			{Name: "cal_aux", Start: 0x07C000, End: 0x07FFFE, ChecksumOffset: 0x07FFFE, Type: "crc16", Description: "auxiliary calibration area"},
			{Name: "full_file", Start: 0x000000, End: 0x1FFFFC, ChecksumOffset: 0x1FFFFC, Type: "crc32", Description: "whole-file integrity word"},
		},
		Forbidden: []RegionDef{
			{Name: "boot_sector", Start: 0x000000, End: 0x008000, Space: "file",
				Reason: "boot loader, the DME will not start if altered"},
			{Name: "flash_counter", Start: 0x008000, End: 0x008200, Space: "file",
				Reason: "programming counter maintained by the flash tool"},
			{Name: "crc_program1", Start: 0x03FFFE, End: 0x040000, Space: "file",
				Reason: "stored checksum word, written only by zone recomputation"},
			{Name: "crc_program2", Start: 0x06FFFE, End: 0x070000, Space: "file",
				Reason: "stored checksum word, written only by zone recomputation"},
			{Name: "crc_cal_main", Start: 0x07BFFE, End: 0x07C000, Space: "file",
				Reason: "stored checksum word, written only by zone recomputation"},
			{Name: "crc_cal_aux", Start: 0x07FFFE, End: 0x080000, Space: "file",
				Reason: "stored checksum word, written only by zone recomputation"},
			{Name: "crc_full", Start: 0x1FFFFC, End: 0x200000, Space: "file",
				Reason: "stored checksum word, written only by zone recomputation"},
		},
		Maps: []MapDef{
			// IJE0S shifts the boost block by 0x100 relative to I8A0S.
			{Name: "wgdc_base", Offset: 0x072100, Space: "file", Size: 512, Rows: 16, Cols: 16,
				Category: "boost", Status: "validated", Confidence: 0.96,
				Formula: &pct},
			{Name: "load_target", Offset: 0x072900, Space: "file", Size: 512, Rows: 16, Cols: 16,
				Category: "boost", Status: "validated", Confidence: 0.94,
				Formula: &formula.Formula{Forward: "x / 10", Inverse: "x * 10", Units: "mg/stk"}},
			{Name: "boost_ceiling", Offset: 0x073100, Space: "file", Size: 32, Rows: 1, Cols: 16,
				Category: "boost", Status: "validated", Confidence: 0.98,
				Formula: &formula.Formula{Forward: "x / 100 - 14.5", Inverse: "(x + 14.5) * 100", Units: "psi"}},
			{Name: "burble_map", Offset: 0x074100, Space: "file", Size: 256,
				Category: "exhaust", Status: "rejected", Confidence: 0.20,
				Warnings: []string{"offset conflicts with injector trim block on IJE0S"}},
		},
	}
}
