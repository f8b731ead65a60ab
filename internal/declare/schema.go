package declare

import (
	"fmt"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/diagnostic"
)

// CurrentVersion is the only supported declaration schema version.
const CurrentVersion = "1"

// File is the root of a YAML declaration file. It carries the same opt-in
// markers as //marshal: directives, for types whose source cannot be
// annotated, plus use-site overrides and pass configuration.
type File struct {
	// Version of the declaration schema.
	Version string `yaml:"version,omitempty"`

	// Types lists type-level declarations.
	Types []TypeDecl `yaml:"types,omitempty"`

	// Sites lists use sites and their per-use overrides.
	Sites []SiteDecl `yaml:"sites,omitempty"`

	// Config overrides pass settings.
	Config *ConfigDecl `yaml:"config,omitempty"`
}

// TypeDecl declares opt-in markers for one type.
type TypeDecl struct {
	// Type reference ("interop.Point", "example.com/interop.Box", "Point").
	Type string `yaml:"type"`

	// Generate requests generated marshalling.
	Generate bool `yaml:"generate,omitempty"`

	// Blittable asserts the type is blittable.
	Blittable bool `yaml:"blittable,omitempty"`

	// Native names the shadow type for this type.
	Native string `yaml:"native,omitempty"`
}

// SiteDecl declares a use site.
type SiteDecl struct {
	// Name identifies the site ("interop.Draw#p"). A site with the name of a
	// directive-derived site replaces it.
	Name string `yaml:"name"`

	// Type is the managed type passed at the site.
	Type string `yaml:"type"`

	// Using names a shadow type applied at this site only.
	Using string `yaml:"using,omitempty"`

	// Direction is one of in, out, inout, return. Defaults to in.
	Direction string `yaml:"direction,omitempty"`

	// Context is forward or reverse. Defaults to forward.
	Context string `yaml:"context,omitempty"`

	// StackFrame tells whether the stub controls a native stack frame for
	// caller-allocated buffers. Derived from direction and context when unset.
	StackFrame *bool `yaml:"stack_frame,omitempty"`
}

// ConfigDecl overrides pass settings from the declaration file.
type ConfigDecl struct {
	Workers int  `yaml:"workers,omitempty"`
	Strict  bool `yaml:"strict,omitempty"`
}

// Validate checks the file for structural errors that do not need a type
// graph.
func (f *File) Validate() diagnostic.Diagnostics {
	var diags diagnostic.Diagnostics

	if f.Version != CurrentVersion {
		diags.AddError(diagnostic.ClassNone, CodeUnsupportedVersion,
			fmt.Sprintf("unsupported declaration version %q (want %q)", f.Version, CurrentVersion), "", "")
	}

	for i, td := range f.Types {
		where := fmt.Sprintf("types[%d]", i)

		if td.Type == "" {
			diags.AddError(diagnostic.ClassNone, CodeMissingField, where+": type is required", "", "")
			continue
		}

		if !td.Generate && !td.Blittable && td.Native == "" {
			diags.AddWarning(CodeEmptyDeclaration, where+": declaration carries no marker", td.Type, "")
		}
	}

	names := make(map[string]int)

	for i, sd := range f.Sites {
		where := fmt.Sprintf("sites[%d]", i)

		if sd.Name == "" {
			diags.AddError(diagnostic.ClassNone, CodeMissingField, where+": name is required", "", "")
		} else if prev, dup := names[sd.Name]; dup {
			diags.AddError(diagnostic.ClassNone, CodeDuplicateSite,
				fmt.Sprintf("%s: duplicates sites[%d]", where, prev), "", sd.Name)
		} else {
			names[sd.Name] = i
		}

		if sd.Type == "" {
			diags.AddError(diagnostic.ClassNone, CodeMissingField, where+": type is required", "", sd.Name)
		}

		if _, ok := analyze.ParseDirection(sd.Direction); !ok {
			diags.AddError(diagnostic.ClassNone, CodeInvalidValue,
				fmt.Sprintf("%s: unknown direction %q", where, sd.Direction), "", sd.Name)
		}

		if _, ok := analyze.ParseCallContext(sd.Context); !ok {
			diags.AddError(diagnostic.ClassNone, CodeInvalidValue,
				fmt.Sprintf("%s: unknown context %q", where, sd.Context), "", sd.Name)
		}
	}

	if f.Config != nil && f.Config.Workers < 0 {
		diags.AddError(diagnostic.ClassNone, CodeInvalidValue, "config.workers must not be negative", "", "")
	}

	return diags
}
