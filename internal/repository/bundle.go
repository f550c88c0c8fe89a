package repository

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"vmacro/internal/logic"
)

// BundleVersion is written to exported bundles.
const BundleVersion = 1

// Bundle is the YAML exchange format for sharing logics between machines.
type Bundle struct {
	Version int            `yaml:"version"`
	Logics  []*logic.Logic `yaml:"logics"`
}

// ExportYAML writes every logic, in display order, as a YAML bundle.
func (r *Repository) ExportYAML(ctx context.Context, w io.Writer) error {
	logics, err := r.List(ctx, false)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Bundle{Version: BundleVersion, Logics: logics}); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return enc.Close()
}

// ImportReport summarises an import.
type ImportReport struct {
	Imported []string
	Skipped  map[string]string
}

// ImportYAML reads a bundle and saves its logics. Ids already present in the
// repository are replaced by fresh ones and nested references inside the
// bundle are remapped accordingly. A trigger key that collides with an
// existing logic is dropped and the imported logic becomes nested.
// Referenced logics are imported before the logics that use them.
func (r *Repository) ImportYAML(ctx context.Context, rd io.Reader) (ImportReport, error) {
	report := ImportReport{Skipped: make(map[string]string)}

	var b Bundle
	if err := yaml.NewDecoder(rd).Decode(&b); err != nil {
		return report, fmt.Errorf("failed to decode bundle: %w", err)
	}
	if b.Version > BundleVersion {
		return report, fmt.Errorf("unsupported bundle version %d", b.Version)
	}

	existing, err := r.List(ctx, false)
	if err != nil {
		return report, err
	}
	taken := make(map[uuid.UUID]bool, len(existing))
	for _, l := range existing {
		taken[l.ID] = true
	}

	remap := make(map[uuid.UUID]uuid.UUID, len(b.Logics))
	for _, l := range b.Logics {
		if l.ID == uuid.Nil || taken[l.ID] {
			remap[l.ID] = uuid.New()
		} else {
			remap[l.ID] = l.ID
		}
	}
	for _, l := range b.Logics {
		l.ID = remap[l.ID]
		for i, it := range l.Items {
			if ref, ok := it.Payload.(logic.LogicRefPayload); ok {
				if to, ok := remap[ref.LogicID]; ok {
					ref.LogicID = to
					l.Items[i].Payload = ref
				}
			}
		}
	}

	for _, l := range dependencyOrder(b.Logics) {
		id := l.ID
		res, err := r.Save(ctx, &id, l)
		if err != nil {
			return report, err
		}
		if !res.OK && !l.IsNested {
			var verr *ValidationError
			if errors.As(res.Err, &verr) && verr.Field == "trigger_key" {
				l.IsNested = true
				l.TriggerKey = nil
				res, err = r.Save(ctx, &id, l)
				if err != nil {
					return report, err
				}
			}
		}
		if !res.OK {
			report.Skipped[l.Name] = res.Message
			continue
		}
		report.Imported = append(report.Imported, l.Name)
	}
	return report, nil
}

// dependencyOrder sorts logics so referenced logics come first. Cycles keep
// their bundle order; the repository rejects what cannot be resolved.
func dependencyOrder(logics []*logic.Logic) []*logic.Logic {
	byID := make(map[uuid.UUID]*logic.Logic, len(logics))
	for _, l := range logics {
		byID[l.ID] = l
	}
	visited := make(map[uuid.UUID]bool, len(logics))
	out := make([]*logic.Logic, 0, len(logics))
	var visit func(l *logic.Logic)
	visit = func(l *logic.Logic) {
		if visited[l.ID] {
			return
		}
		visited[l.ID] = true
		for _, ref := range l.References() {
			if dep, ok := byID[ref]; ok {
				visit(dep)
			}
		}
		out = append(out, l)
	}
	for _, l := range logics {
		visit(l)
	}
	return out
}
