package patch

import (
	"errors"
	"fmt"

	"github.com/thebringerofdeath789/535xi-sub001/internal/common"
	"github.com/thebringerofdeath789/535xi-sub001/internal/image"
	"github.com/thebringerofdeath789/535xi-sub001/internal/safety"
	"github.com/thebringerofdeath789/535xi-sub001/internal/zones"
)

// Engine applies patches to an image for one ECU variant. The engine itself
// is stateless between calls; the image buffer passed in is exclusively
// owned by the caller for the duration of each call.
type Engine struct {
	safety  *safety.Registry
	zones   *zones.Registry
	variant string
	audit   *AuditLog
}

// Config wires an engine to its registries.
type Config struct {
	Safety  *safety.Registry
	Zones   *zones.Registry
	Variant string
	// Audit receives a JSONL entry per applied patch when non-nil.
	Audit *AuditLog
}

// NewEngine validates the wiring and returns an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Safety == nil {
		return nil, errors.New("nil safety registry")
	}
	if cfg.Zones == nil {
		return nil, errors.New("nil zone registry")
	}
	if _, err := cfg.Zones.ZonesFor(cfg.Variant); err != nil {
		return nil, err
	}
	return &Engine{safety: cfg.Safety, zones: cfg.Zones, variant: cfg.Variant, audit: cfg.Audit}, nil
}

// Variant returns the ECU variant the engine was built for.
func (e *Engine) Variant() string {
	return e.variant
}

// ApplyOne validates and writes a single patch, optionally recomputing the
// checksum zones it touches immediately. The returned result names the
// zones overlapped by the write whether or not they were recomputed.
func (e *Engine) ApplyOne(img *image.Image, p MapPatch, updateCRC bool) (PatchResult, error) {
	res, mod := e.applyBytes(img, p)
	if res.Failed() {
		return res, nil
	}
	if updateCRC {
		if _, _, err := e.zones.UpdateAllAffected(img, []zones.Mod{mod}, e.variant); err != nil {
			return res, err
		}
		res.State = StateCrcUpdated
	}
	return res, nil
}

// applyBytes runs the per-patch state machine up to the byte write and
// returns the modification for later checksum bookkeeping. A failed patch
// writes nothing.
func (e *Engine) applyBytes(img *image.Image, p MapPatch) (PatchResult, zones.Mod) {
	res := PatchResult{Name: p.Name, Offset: p.Offset, Size: p.Size, State: StatePending}
	if err := p.check(); err != nil {
		res.State = StateFailed
		res.Reason = err.Error()
		return res, zones.Mod{}
	}
	if p.Validate {
		if err := e.safety.IsSafe(p.Offset, p.Size); err != nil {
			res.State = StateFailed
			res.Reason = err.Error()
			return res, zones.Mod{}
		}
	} else {
		common.Logf("patch %q at 0x%X: safety validation skipped by caller", p.Name, p.Offset)
	}
	res.State = StateValidated

	var before []byte
	if e.audit != nil {
		if view, err := img.Slice(p.Offset, p.Size); err == nil {
			before = append([]byte(nil), view...)
		}
	}
	if err := img.WriteBytes(p.Offset, p.Data); err != nil {
		res.State = StateFailed
		res.Reason = err.Error()
		return res, zones.Mod{}
	}
	res.State = StateApplied

	if touched, err := e.zones.ZonesOverlapping(p.Offset, p.Size, e.variant); err == nil {
		for _, z := range touched {
			res.Zones = append(res.Zones, z.Name)
		}
	}
	if e.audit != nil {
		if err := e.audit.Append(Entry{
			Patch:  p.Name,
			Offset: int64(p.Offset),
			Before: before,
			After:  p.Data,
		}); err != nil {
			common.Logf("audit append for %q failed: %v", p.Name, err)
		}
	}
	return res, zones.Mod{Offset: p.Offset, Size: p.Size}
}

// ApplySet applies every patch of the set in order, best effort: one
// patch's failure does not stop the others, and a failed patch writes no
// bytes. After all patches, every checksum zone touched by a successful
// patch is recomputed exactly once.
func (e *Engine) ApplySet(img *image.Image, set *PatchSet, updateCRCs bool) (SetResult, error) {
	out := SetResult{SetName: set.Name}
	var mods []zones.Mod
	for _, p := range set.Patches {
		res, mod := e.applyBytes(img, p)
		out.Results = append(out.Results, res)
		if res.Failed() {
			out.Failed++
			continue
		}
		out.Applied++
		mods = append(mods, mod)
	}
	if updateCRCs && len(mods) > 0 {
		count, names, err := e.zones.UpdateAllAffected(img, mods, e.variant)
		out.ZonesUpdated = count
		out.ZoneNames = names
		if err != nil {
			return out, fmt.Errorf("recompute checksum zones: %w", err)
		}
		for i := range out.Results {
			if !out.Results[i].Failed() && len(out.Results[i].Zones) > 0 {
				out.Results[i].State = StateCrcUpdated
			}
		}
	}
	return out, nil
}

// ApplySetStrict stages the whole set against a private copy of the image
// and swaps the result into the caller-visible buffer only if every
// Validate=true patch passes. Patches with Validate=false are still applied
// on the staging copy and logged, but they cannot veto the swap.
func (e *Engine) ApplySetStrict(img *image.Image, set *PatchSet, updateCRCs bool) (SetResult, error) {
	staged := img.Clone()
	out, err := e.ApplySet(staged, set, updateCRCs)
	if err != nil {
		return out, err
	}
	for i, res := range out.Results {
		if res.Failed() && set.Patches[i].Validate {
			return out, fmt.Errorf("strict apply of %q aborted: patch %q failed: %s",
				set.Name, res.Name, res.Reason)
		}
	}
	if err := img.CopyFrom(staged); err != nil {
		return out, err
	}
	return out, nil
}
