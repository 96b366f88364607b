package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pterm/pterm"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/thebringerofdeath789/535xi-sub001/internal/boost"
	"github.com/thebringerofdeath789/535xi-sub001/internal/common"
	"github.com/thebringerofdeath789/535xi-sub001/internal/image"
	"github.com/thebringerofdeath789/535xi-sub001/internal/manifest"
	"github.com/thebringerofdeath789/535xi-sub001/internal/patch"
	"github.com/thebringerofdeath789/535xi-sub001/internal/profile"
	"github.com/thebringerofdeath789/535xi-sub001/internal/report"
	"github.com/thebringerofdeath789/535xi-sub001/internal/zones"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	setupLogging()
	cmd := os.Args[1]
	switch cmd {
	case "verify":
		verifyCmd(os.Args[2:])
	case "fix":
		fixCmd(os.Args[2:])
	case "patch":
		patchCmd(os.Args[2:])
	case "edit":
		editCmd(os.Args[2:])
	case "tables":
		tablesCmd(os.Args[2:])
	case "manifest":
		manifestCmd(os.Args[2:])
	case "backup":
		backupCmd(os.Args[2:])
	case "undo":
		undoCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "profile":
		profileCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`calctl %s (built %s) <command> [options]

Commands:
  verify    --in <bin> --variant <MSD80|MSD81> [--profile <yaml>] [--json <report.json>] [--pdf <report.pdf>]
  fix       --in <bin> --variant <v> [--profile <yaml>] [--out <bin>]
  patch     --in <bin> --variant <v> --set <patchset.json> [--out <bin>] [--strict] [--audit <jsonl>] [--json <report.json>] [--pdf <report.pdf>] [--yes]
  edit      --in <bin> --variant <v> --map <name> --row <r> --col <c> --value <real> [--audit <jsonl>] [--yes]
  tables    --variant <v> [--profile <yaml>] [--in <bin> --map <name>]
  manifest  --in <bin> --variant <v> --map <name> --out <manifest.json> [--vin <vin>] [--qr <png>] [--extract <bin>]
  backup    --in <bin>
  undo      --in <bin> --variant <v> --audit <audit.jsonl> --out <bin>
  report    --session <report.json> --pdf <report.pdf>
  profile   [--variant <v>] [--out <profile.yaml>]
`, version, buildDate)
}

type logConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type config struct {
	Logs logConfig `yaml:"logs"`
}

// setupLogging multiplexes the tool log into a rotating file when
// calctl.yaml is present next to the binary or in the working directory.
// Without it, logging stays on stderr only.
func setupLogging() {
	cfg, ok := loadConfig("calctl.yaml")
	if !ok {
		return
	}
	if err := os.MkdirAll(cfg.Logs.Directory, 0o755); err != nil {
		common.Logf("create log dir: %v", err)
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Logs.Directory, "calctl.log"),
		MaxSize:    cfg.Logs.MaxSizeMB,
		MaxAge:     cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
	}
	common.SetOutput(io.MultiWriter(os.Stderr, rotator))
}

func loadConfig(path string) (config, bool) {
	var cfg config
	f, err := os.Open(path)
	if err != nil {
		return cfg, false
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		common.Logf("parse %s: %v", path, err)
		return cfg, false
	}
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = "logs"
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg, true
}

func openBundle(variant, profilePath string) *profile.Bundle {
	p, err := profile.Open(variant, profilePath)
	if err != nil {
		fmt.Println("profile:", err)
		os.Exit(1)
	}
	b, err := p.Build()
	if err != nil {
		fmt.Println("profile:", err)
		os.Exit(1)
	}
	return b
}

func loadImage(path string) *image.Image {
	img, err := image.Load(path)
	if err != nil {
		fmt.Println("load image:", err)
		os.Exit(1)
	}
	return img
}

// confirmWrite shows the risk banner and asks before any command that
// modifies an image, unless --yes was given.
func confirmWrite(yes bool) {
	if yes {
		return
	}
	pterm.Warning.Println("Modifying DME calibration can cause engine damage, unsafe driving conditions and inspection failures.")
	ok, _ := pterm.DefaultInteractiveConfirm.Show("Do you understand the risks and want to proceed?")
	if !ok {
		pterm.Info.Println("Cancelled.")
		os.Exit(0)
	}
}

func backupImage(path string) {
	backup, err := image.Backup(path)
	if err != nil {
		fmt.Println("backup:", err)
		os.Exit(1)
	}
	pterm.Success.Printf("Backup created: %s\n", backup)
}

func verifyCmd(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	in := fs.String("in", "", "calibration image")
	variant := fs.String("variant", "MSD80", "ECU variant")
	profilePath := fs.String("profile", "", "profile YAML (default: built-in)")
	jsonOut := fs.String("json", "", "session report JSON output")
	pdfOut := fs.String("pdf", "", "session report PDF output")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	b := openBundle(*variant, *profilePath)
	img := loadImage(*in)

	rows, allValid, err := report.VerifyMatrix(img, b.Zones, *variant)
	if err != nil {
		fmt.Println("verify:", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ZONE\tTYPE\tSPAN\tCOMPUTED\tSTORED\tVALID")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t0x%06X-0x%06X\t%s\t%s\t%v\n",
			r.Name, strings.ToUpper(r.Kind), r.Start, r.End, r.Computed, r.Stored, r.Valid)
	}
	w.Flush()

	if *jsonOut != "" || *pdfOut != "" {
		rep := report.New(*variant, b.Profile.Revision, *in, rows, nil)
		if sha, _, err := common.Sha256OfFile(*in); err == nil {
			rep.ImageSha256 = sha
		}
		if *jsonOut != "" {
			if err := report.SaveJSON(rep, *jsonOut); err != nil {
				fmt.Println("write report:", err)
				os.Exit(1)
			}
		}
		if *pdfOut != "" {
			if err := report.SavePDF(rep, *pdfOut); err != nil {
				fmt.Println("write pdf:", err)
				os.Exit(1)
			}
		}
	}

	if !allValid {
		fmt.Println("FAIL: one or more checksum zones do not verify")
		os.Exit(1)
	}
	fmt.Println("PASS: all checksum zones verify")
}

func fixCmd(args []string) {
	fs := flag.NewFlagSet("fix", flag.ExitOnError)
	in := fs.String("in", "", "calibration image")
	variant := fs.String("variant", "MSD80", "ECU variant")
	profilePath := fs.String("profile", "", "profile YAML (default: built-in)")
	out := fs.String("out", "", "output path (default: in place, with backup)")
	yes := fs.Bool("yes", false, "skip confirmation prompt")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	b := openBundle(*variant, *profilePath)
	img := loadImage(*in)
	confirmWrite(*yes)

	outPath := *out
	if outPath == "" {
		outPath = *in
		backupImage(*in)
	}

	zs, err := b.Zones.ZonesFor(*variant)
	if err != nil {
		fmt.Println("zones:", err)
		os.Exit(1)
	}
	for _, z := range zs {
		if err := zones.RecomputeAndStore(img, z); err != nil {
			fmt.Println("recompute:", err)
			os.Exit(1)
		}
	}
	if err := img.WriteFile(outPath); err != nil {
		fmt.Println("write image:", err)
		os.Exit(1)
	}
	fmt.Printf("Recomputed %d zone(s), wrote %s\n", len(zs), outPath)
}

func patchCmd(args []string) {
	fs := flag.NewFlagSet("patch", flag.ExitOnError)
	in := fs.String("in", "", "calibration image")
	variant := fs.String("variant", "MSD80", "ECU variant")
	profilePath := fs.String("profile", "", "profile YAML (default: built-in)")
	setPath := fs.String("set", "", "patch set JSON")
	out := fs.String("out", "", "output path (default: in place, with backup)")
	strict := fs.Bool("strict", false, "all-or-nothing application")
	auditPath := fs.String("audit", "", "audit log output (jsonl)")
	jsonOut := fs.String("json", "", "session report JSON output")
	pdfOut := fs.String("pdf", "", "session report PDF output")
	yes := fs.Bool("yes", false, "skip confirmation prompt")
	fs.Parse(args)

	if *in == "" || *setPath == "" {
		fmt.Println("required: --in, --set")
		os.Exit(1)
	}
	b := openBundle(*variant, *profilePath)
	img := loadImage(*in)
	set, err := patch.LoadSet(*setPath)
	if err != nil {
		fmt.Println("load set:", err)
		os.Exit(1)
	}

	pterm.Info.Printf("Patch set %q: %d patch(es) against %s\n", set.Name, len(set.Patches), *variant)
	confirmWrite(*yes)

	outPath := *out
	if outPath == "" {
		outPath = *in
		backupImage(*in)
	}

	auditLogPath := *auditPath
	if auditLogPath == "" {
		auditLogPath = *in + ".audit.jsonl"
	}
	eng, err := patch.NewEngine(patch.Config{
		Safety:  b.Safety,
		Zones:   b.Zones,
		Variant: *variant,
		Audit:   patch.NewAuditLog(auditLogPath),
	})
	if err != nil {
		fmt.Println("engine:", err)
		os.Exit(1)
	}

	var res patch.SetResult
	if *strict {
		res, err = eng.ApplySetStrict(img, set, true)
	} else {
		res, err = eng.ApplySet(img, set, true)
	}
	if err != nil {
		fmt.Println("apply:", err)
		os.Exit(1)
	}

	for _, r := range res.Results {
		if r.Failed() {
			pterm.Error.Printf("%s @ 0x%06X: %s\n", r.Name, r.Offset, r.Reason)
		} else {
			pterm.Success.Printf("%s @ 0x%06X (%d bytes) zones=[%s]\n",
				r.Name, r.Offset, r.Size, strings.Join(r.Zones, " "))
		}
	}
	fmt.Printf("applied=%d failed=%d zones_updated=%d\n", res.Applied, res.Failed, res.ZonesUpdated)

	if res.Applied > 0 {
		if err := img.WriteFile(outPath); err != nil {
			fmt.Println("write image:", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", outPath)
		fmt.Printf("Audit log: %s\n", auditLogPath)
	}

	if *jsonOut != "" || *pdfOut != "" {
		rows, _, err := report.VerifyMatrix(img, b.Zones, *variant)
		if err != nil {
			fmt.Println("verify:", err)
			os.Exit(1)
		}
		rep := report.New(*variant, b.Profile.Revision, outPath, rows, &res)
		if sha, _, err := common.Sha256OfFile(outPath); err == nil {
			rep.ImageSha256 = sha
		}
		if *jsonOut != "" {
			if err := report.SaveJSON(rep, *jsonOut); err != nil {
				fmt.Println("write report:", err)
				os.Exit(1)
			}
		}
		if *pdfOut != "" {
			if err := report.SavePDF(rep, *pdfOut); err != nil {
				fmt.Println("write pdf:", err)
				os.Exit(1)
			}
		}
	}

	if res.Failed > 0 {
		os.Exit(1)
	}
}

func editCmd(args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	in := fs.String("in", "", "calibration image")
	variant := fs.String("variant", "MSD80", "ECU variant")
	profilePath := fs.String("profile", "", "profile YAML (default: built-in)")
	mapName := fs.String("map", "", "table name")
	row := fs.Int("row", 0, "cell row")
	col := fs.Int("col", 0, "cell column")
	value := fs.Float64("value", 0, "new value in engineering units")
	auditPath := fs.String("audit", "", "audit log output (jsonl)")
	yes := fs.Bool("yes", false, "skip confirmation prompt")
	fs.Parse(args)

	if *in == "" || *mapName == "" {
		fmt.Println("required: --in, --map")
		os.Exit(1)
	}
	b := openBundle(*variant, *profilePath)
	img := loadImage(*in)

	auditLogPath := *auditPath
	if auditLogPath == "" {
		auditLogPath = *in + ".audit.jsonl"
	}
	eng, err := patch.NewEngine(patch.Config{
		Safety:  b.Safety,
		Zones:   b.Zones,
		Variant: *variant,
		Audit:   patch.NewAuditLog(auditLogPath),
	})
	if err != nil {
		fmt.Println("engine:", err)
		os.Exit(1)
	}
	adapter, err := boost.NewAdapter(b.Revision, eng)
	if err != nil {
		fmt.Println("adapter:", err)
		os.Exit(1)
	}

	tbl, err := adapter.Table(*mapName)
	if err != nil {
		fmt.Println("table:", err)
		os.Exit(1)
	}
	current, err := adapter.ReadCell(img, *mapName, *row, *col)
	if err != nil {
		fmt.Println("read cell:", err)
		os.Exit(1)
	}
	pterm.Info.Printf("%s[%d][%d]: %.2f -> %.2f %s\n", *mapName, *row, *col, current, *value, tbl.Conv.Units)
	confirmWrite(*yes)
	backupImage(*in)

	res, err := adapter.WriteCell(img, *mapName, *row, *col, *value, true)
	if err != nil {
		fmt.Println("write cell:", err)
		os.Exit(1)
	}
	if res.Failed() {
		pterm.Error.Println(res.Reason)
		os.Exit(1)
	}
	if err := img.WriteFile(*in); err != nil {
		fmt.Println("write image:", err)
		os.Exit(1)
	}
	pterm.Success.Printf("Cell updated, zones recomputed: %s\n", strings.Join(res.Zones, " "))
}

func tablesCmd(args []string) {
	fs := flag.NewFlagSet("tables", flag.ExitOnError)
	in := fs.String("in", "", "calibration image (required with --map)")
	variant := fs.String("variant", "MSD80", "ECU variant")
	profilePath := fs.String("profile", "", "profile YAML (default: built-in)")
	mapName := fs.String("map", "", "dump one table's values")
	fs.Parse(args)

	b := openBundle(*variant, *profilePath)

	if *mapName == "" {
		names := make([]string, 0, len(b.Revision.Tables))
		for name := range b.Revision.Tables {
			names = append(names, name)
		}
		sort.Strings(names)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TABLE\tOFFSET\tSHAPE\tUNITS\tSTATUS\tCONFIDENCE")
		for _, name := range names {
			t := b.Revision.Tables[name]
			fmt.Fprintf(w, "%s\t0x%06X\t%dx%d\t%s\t%s\t%.2f\n",
				name, t.FileOffset, t.Def.Rows, t.Def.Cols, t.Conv.Units, t.Def.Status, t.Def.Confidence)
		}
		w.Flush()
		return
	}

	if *in == "" {
		fmt.Println("required with --map: --in")
		os.Exit(1)
	}
	img := loadImage(*in)
	eng, err := patch.NewEngine(patch.Config{Safety: b.Safety, Zones: b.Zones, Variant: *variant})
	if err != nil {
		fmt.Println("engine:", err)
		os.Exit(1)
	}
	adapter, err := boost.NewAdapter(b.Revision, eng)
	if err != nil {
		fmt.Println("adapter:", err)
		os.Exit(1)
	}
	tbl, err := adapter.Table(*mapName)
	if err != nil {
		fmt.Println("table:", err)
		os.Exit(1)
	}
	values, err := adapter.ReadTable(img, *mapName)
	if err != nil {
		fmt.Println("read table:", err)
		os.Exit(1)
	}
	fmt.Printf("%s @ 0x%06X (%s)\n", *mapName, tbl.FileOffset, tbl.Conv.Units)
	for _, rowVals := range values {
		parts := make([]string, len(rowVals))
		for i, v := range rowVals {
			parts[i] = fmt.Sprintf("%7.2f", v)
		}
		fmt.Println(strings.Join(parts, " "))
	}
}

func manifestCmd(args []string) {
	fs := flag.NewFlagSet("manifest", flag.ExitOnError)
	in := fs.String("in", "", "calibration image")
	variant := fs.String("variant", "MSD80", "ECU variant")
	profilePath := fs.String("profile", "", "profile YAML (default: built-in)")
	mapName := fs.String("map", "", "map to snapshot")
	vin := fs.String("vin", "", "vehicle identification number")
	out := fs.String("out", "", "manifest JSON output")
	qrOut := fs.String("qr", "", "QR code PNG of the map CRC")
	extract := fs.String("extract", "", "write the raw map bytes to this file")
	fs.Parse(args)

	if *in == "" || *mapName == "" || *out == "" {
		fmt.Println("required: --in, --map, --out")
		os.Exit(1)
	}
	b := openBundle(*variant, *profilePath)
	img := loadImage(*in)

	m, err := manifest.Build(img, b.Safety, b.Zones, *variant, *mapName, *vin)
	if err != nil {
		fmt.Println("manifest:", err)
		os.Exit(1)
	}
	if err := manifest.Save(m, *out); err != nil {
		fmt.Println("write manifest:", err)
		os.Exit(1)
	}
	fmt.Printf("%s @ file 0x%06X / device 0x%X, %d bytes, crc32 %s\n",
		m.MapName, m.MapOffset, m.AbsoluteOffset, m.Length, m.Crc32)

	if *extract != "" {
		data, err := img.Slice(m.MapOffset, m.Length)
		if err != nil {
			fmt.Println("extract:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*extract, data, 0o644); err != nil {
			fmt.Println("write extract:", err)
			os.Exit(1)
		}
		fmt.Printf("Extracted map to %s\n", *extract)
	}
	if *qrOut != "" {
		png, err := report.ManifestCrcToQR(m.Crc32, 256)
		if err != nil {
			fmt.Println("qr:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*qrOut, png, 0o644); err != nil {
			fmt.Println("write qr:", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote QR: %s\n", *qrOut)
	}
}

func backupCmd(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	in := fs.String("in", "", "calibration image")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	backup, err := image.Backup(*in)
	if err != nil {
		fmt.Println("backup:", err)
		os.Exit(1)
	}
	sha, size, err := common.Sha256OfFile(backup)
	if err != nil {
		fmt.Println("hash backup:", err)
		os.Exit(1)
	}
	fmt.Printf("Backup created: %s (%s)\n", backup, common.FormatBytes(size))
	fmt.Printf("SHA256: %s\n", sha)
}

func undoCmd(args []string) {
	fs := flag.NewFlagSet("undo", flag.ExitOnError)
	in := fs.String("in", "", "patched calibration image")
	variant := fs.String("variant", "MSD80", "ECU variant")
	profilePath := fs.String("profile", "", "profile YAML (default: built-in)")
	audit := fs.String("audit", "", "audit log (jsonl)")
	out := fs.String("out", "", "restored output file")
	fs.Parse(args)

	if *in == "" || *audit == "" || *out == "" {
		fmt.Println("required: --in, --audit, --out")
		os.Exit(1)
	}
	b := openBundle(*variant, *profilePath)
	img := loadImage(*in)

	entries, err := patch.ReadAuditLog(*audit)
	if err != nil {
		fmt.Println("read audit:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("audit log is empty")
		os.Exit(1)
	}

	mismatches := 0
	applied := 0
	var mods []zones.Mod
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		before, err := entry.BeforeBytes()
		if err != nil {
			fmt.Printf("skip entry %d: decode beforeHex failed: %v\n", i, err)
			continue
		}
		after, err := entry.AfterBytes()
		if err != nil {
			fmt.Printf("skip entry %d: decode afterHex failed: %v\n", i, err)
			continue
		}
		if entry.Offset < 0 || len(before) == 0 {
			fmt.Printf("skip entry %d: nothing to restore\n", i)
			continue
		}
		offset := int(entry.Offset)
		if current, err := img.Slice(offset, len(after)); err != nil || string(current) != string(after) {
			mismatches++
		}
		if err := img.WriteBytes(offset, before); err != nil {
			fmt.Println("restore bytes:", err)
			os.Exit(1)
		}
		mods = append(mods, zones.Mod{Offset: offset, Size: len(before)})
		applied++
	}

	updated, names, err := b.Zones.UpdateAllAffected(img, mods, *variant)
	if err != nil {
		fmt.Println("recompute zones:", err)
		os.Exit(1)
	}
	if err := img.WriteFile(*out); err != nil {
		fmt.Println("write restored:", err)
		os.Exit(1)
	}

	restoredHash, _, err := common.Sha256OfFile(*out)
	if err != nil {
		fmt.Println("hash restored:", err)
		os.Exit(1)
	}
	fmt.Printf("Restored %d patch(es) to %s\n", applied, *out)
	fmt.Printf("Recomputed %d zone(s): %s\n", updated, strings.Join(names, " "))
	fmt.Printf("Restored SHA256: %s\n", restoredHash)
	if mismatches > 0 {
		fmt.Printf("Warning: %d patch(es) did not match expected patched bytes; original bytes reapplied regardless.\n", mismatches)
	}
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	session := fs.String("session", "", "session report JSON")
	pdfOut := fs.String("pdf", "", "output PDF")
	fs.Parse(args)

	if *session == "" || *pdfOut == "" {
		fmt.Println("required: --session, --pdf")
		os.Exit(1)
	}
	rep, err := report.LoadJSON(*session)
	if err != nil {
		fmt.Println("load session:", err)
		os.Exit(1)
	}
	if err := report.SavePDF(rep, *pdfOut); err != nil {
		fmt.Println("write pdf:", err)
		os.Exit(1)
	}
	fmt.Println("Wrote PDF:", *pdfOut)
}

func profileCmd(args []string) {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	variant := fs.String("variant", "", "dump this variant's built-in profile")
	out := fs.String("out", "", "write profile YAML here instead of stdout")
	fs.Parse(args)

	if *variant == "" {
		fmt.Println("Built-in variants:", strings.Join(profile.Variants(), ", "))
		return
	}
	p, err := profile.Builtin(*variant)
	if err != nil {
		if errors.Is(err, profile.ErrUnknownVariant) {
			fmt.Printf("%v (known: %s)\n", err, strings.Join(profile.Variants(), ", "))
		} else {
			fmt.Println("profile:", err)
		}
		os.Exit(1)
	}
	if *out != "" {
		if err := p.Save(*out); err != nil {
			fmt.Println("write profile:", err)
			os.Exit(1)
		}
		fmt.Println("Wrote profile:", *out)
		return
	}
	raw, err := yaml.Marshal(p)
	if err != nil {
		fmt.Println("encode profile:", err)
		os.Exit(1)
	}
	os.Stdout.Write(raw)
}
