package declare

import (
	"errors"
	"fmt"

	"marshal-planner/internal/analyze"
	"marshal-planner/internal/diagnostic"
)

// Diagnostic codes of the declaration surface.
const (
	CodeUnsupportedVersion    = "unsupported_version"
	CodeMissingField          = "missing_field"
	CodeInvalidValue          = "invalid_value"
	CodeDuplicateSite         = "duplicate_site"
	CodeEmptyDeclaration      = "empty_declaration"
	CodeUnknownType           = "unknown_type"
	CodeAmbiguousType         = "ambiguous_type"
	CodeDeclarationOnInstance = "declaration_on_instance"
	CodeDeclarationOnUnnamed  = "declaration_on_unnamed"
	CodeSiteReplaced          = "site_replaced"
)

// Apply validates f and merges its declarations into graph: type markers
// are added to the declared types, use sites are appended or replace the
// directive-derived site of the same name. Entries that fail to resolve are
// reported and skipped; the rest of the file still applies.
func Apply(f *File, graph *analyze.TypeGraph) diagnostic.Diagnostics {
	diags := f.Validate()
	if diags.HasCode(CodeUnsupportedVersion) {
		return diags
	}

	for _, td := range f.Types {
		if td.Type == "" {
			continue
		}

		applyType(td, graph, &diags)
	}

	for _, sd := range f.Sites {
		if sd.Name == "" || sd.Type == "" {
			continue
		}

		applySite(sd, graph, &diags)
	}

	return diags
}

func applyType(td TypeDecl, graph *analyze.TypeGraph, diags *diagnostic.Diagnostics) {
	t, err := ResolveTypeRef(td.Type, graph)
	if err != nil {
		addResolveError(diags, err, td.Type, "")
		return
	}

	switch {
	case t.IsInstance():
		diags.AddError(diagnostic.ClassNone, CodeDeclarationOnInstance,
			fmt.Sprintf("declarations belong to the generic type %s, not to an instance", t.Origin.ID),
			t.ID.String(), "")

		return
	case !t.IsNamed():
		diags.AddError(diagnostic.ClassNone, CodeDeclarationOnUnnamed,
			fmt.Sprintf("cannot declare markers on unnamed type %s", t), td.Type, "")

		return
	}

	decl := analyze.Declarations{Generate: td.Generate, Blittable: td.Blittable}

	if td.Native != "" {
		native, err := ResolveTypeRef(td.Native, graph)
		if err != nil {
			addResolveError(diags, err, td.Native, "")
			return
		}

		if !native.IsNamed() {
			diags.AddError(diagnostic.ClassNone, CodeDeclarationOnUnnamed,
				fmt.Sprintf("shadow type %s must be a named type", native), t.ID.String(), "")

			return
		}

		decl.Native = native.ID
	}

	t.Decl = t.Decl.Merge(decl)
}

func applySite(sd SiteDecl, graph *analyze.TypeGraph, diags *diagnostic.Diagnostics) {
	t, err := ResolveTypeRef(sd.Type, graph)
	if err != nil {
		addResolveError(diags, err, sd.Type, sd.Name)
		return
	}

	dir, okDir := analyze.ParseDirection(sd.Direction)
	ctx, okCtx := analyze.ParseCallContext(sd.Context)

	if !okDir || !okCtx {
		// Already reported by Validate.
		return
	}

	site := &analyze.UseSite{
		Name:       sd.Name,
		Type:       t,
		Direction:  dir,
		Context:    ctx,
		StackFrame: analyze.DefaultStackFrame(dir, ctx),
	}

	if sd.StackFrame != nil {
		site.StackFrame = *sd.StackFrame
	}

	if sd.Using != "" {
		shadow, err := ResolveTypeRef(sd.Using, graph)
		if err != nil {
			addResolveError(diags, err, sd.Using, sd.Name)
			return
		}

		site.Override = shadow.ID
	}

	for i, existing := range graph.Sites {
		if existing.Name == sd.Name {
			graph.Sites[i] = site
			diags.AddInfo(diagnostic.ClassNone, CodeSiteReplaced,
				"declaration file replaces the directive-derived site", "", sd.Name)

			return
		}
	}

	graph.Sites = append(graph.Sites, site)
}

func addResolveError(diags *diagnostic.Diagnostics, err error, ref, site string) {
	var (
		unknown   *UnknownTypeError
		ambiguous *AmbiguousTypeError
	)

	switch {
	case errors.As(err, &unknown):
		diags.Add(diagnostic.Diagnostic{
			Severity:    diagnostic.DiagnosticError,
			Class:       diagnostic.ClassNone,
			Code:        CodeUnknownType,
			Message:     err.Error(),
			Subject:     ref,
			Site:        site,
			Suggestions: unknown.Suggestions,
		})
	case errors.As(err, &ambiguous):
		diags.AddError(diagnostic.ClassNone, CodeAmbiguousType, err.Error(), ref, site)
	default:
		diags.AddError(diagnostic.ClassNone, CodeInvalidValue, err.Error(), ref, site)
	}
}
