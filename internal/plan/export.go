package plan

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/diagnostic"
)

// ExportVersion is the version of the exported plan document.
const ExportVersion = "1"

// File permission constants.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// PlanFile is the document handed to the code generator.
type PlanFile struct {
	Version string      `yaml:"version"`
	Plans   []PlanEntry `yaml:"plans"`
	// Order lists the definition-site plans in generation order.
	Order       []string         `yaml:"order,omitempty"`
	Diagnostics []DiagnosticLine `yaml:"diagnostics,omitempty"`
}

// PlanEntry is the exported form of a MarshallingPlan.
type PlanEntry struct {
	Type        string       `yaml:"type"`
	Site        string       `yaml:"site,omitempty"`
	Direction   string       `yaml:"direction,omitempty"`
	Context     string       `yaml:"context,omitempty"`
	Strategy    string       `yaml:"strategy"`
	Source      string       `yaml:"source"`
	Valid       bool         `yaml:"valid"`
	Directions  []string     `yaml:"directions,omitempty,flow"`
	Release     bool         `yaml:"release,omitempty"`
	Native      string       `yaml:"native,omitempty"`
	Shadow      string       `yaml:"shadow,omitempty"`
	Synthesized bool         `yaml:"synthesized,omitempty"`
	Unwraps     bool         `yaml:"unwraps_value,omitempty"`
	Pinning     string       `yaml:"pinning,omitempty"`
	Buffer      *BufferEntry `yaml:"buffer,omitempty"`
}

// BufferEntry is the exported buffer strategy.
type BufferEntry struct {
	Kind string `yaml:"kind"`
	Size int64  `yaml:"size"`
}

// DiagnosticLine is the exported form of a diagnostic.
type DiagnosticLine struct {
	Severity string `yaml:"severity"`
	Class    string `yaml:"class"`
	Code     string `yaml:"code"`
	Type     string `yaml:"type,omitempty"`
	Site     string `yaml:"site,omitempty"`
	Message  string `yaml:"message"`
}

// Export converts a pass result into its document form.
func Export(result *Result) (*PlanFile, error) {
	pf := &PlanFile{Version: ExportVersion, Plans: []PlanEntry{}}

	for _, p := range result.Plans {
		pf.Plans = append(pf.Plans, exportPlan(p))
	}

	order, err := GenerationOrder(result)
	if err != nil {
		return nil, err
	}

	for _, p := range order {
		pf.Order = append(pf.Order, p.Subject())
	}

	d := result.Diagnostics
	for _, list := range [][]diagnostic.Diagnostic{d.Errors, d.Warnings, d.Infos} {
		for _, diag := range list {
			pf.Diagnostics = append(pf.Diagnostics, DiagnosticLine{
				Severity: diag.Severity.String(),
				Class:    diag.Class.String(),
				Code:     diag.Code,
				Type:     diag.Subject,
				Site:     diag.Site,
				Message:  diag.Message,
			})
		}
	}

	return pf, nil
}

// ExportYAML renders a pass result as YAML.
func ExportYAML(result *Result) ([]byte, error) {
	pf, err := Export(result)
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(pf)
	if err != nil {
		return nil, fmt.Errorf("marshaling plans: %w", err)
	}

	return data, nil
}

// WriteFile writes the YAML plan document to path, creating its directory.
func WriteFile(result *Result, path string) error {
	data, err := ExportYAML(result)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("writing plan file %s: %w", path, err)
	}

	return nil
}

func exportPlan(p *MarshallingPlan) PlanEntry {
	e := PlanEntry{
		Type:        p.Subject(),
		Strategy:    p.Strategy.String(),
		Source:      p.Source.String(),
		Valid:       p.Valid,
		Release:     p.ReleaseRequired,
		Native:      typeName(p.Native),
		Shadow:      typeName(p.Shadow),
		Synthesized: p.Synthesized,
		Unwraps:     p.UnwrapsValue,
	}

	if p.Site != nil {
		e.Site = p.Site.Name
		e.Direction = p.Site.Direction.String()
		e.Context = p.Site.Context.String()
	}

	if p.ManagedToNative {
		e.Directions = append(e.Directions, "managed_to_native")
	}

	if p.NativeToManaged {
		e.Directions = append(e.Directions, "native_to_managed")
	}

	if p.Pinning.Eligible {
		e.Pinning = typeName(p.Pinning.Element)
	}

	if p.Buffer.Kind != BufferNone {
		e.Buffer = &BufferEntry{Kind: p.Buffer.Kind.String(), Size: p.Buffer.Size}
	}

	return e
}

func typeName(t *analyze.TypeInfo) string {
	if t == nil {
		return ""
	}

	return subjectOf(t)
}
