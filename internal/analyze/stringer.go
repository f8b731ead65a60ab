package analyze

import (
	"sort"
	"strconv"
	"strings"
)

// TypePath builds a readable path string through a value layout.
// Examples:
//   - "Point" for a simple struct
//   - "Point.X" for a field
//   - "Packet.Header.Flags" for a nested field
//   - "Packet.Data[4]" for an inline array field
type TypePath struct {
	parts []string
}

// NewTypePath creates a new TypePath from a root type name.
func NewTypePath(root string) *TypePath {
	return &TypePath{
		parts: []string{root},
	}
}

// Field appends a field name to the path.
func (p *TypePath) Field(name string) *TypePath {
	return &TypePath{
		parts: append(append([]string{}, p.parts...), name),
	}
}

// Array appends an array length indicator "[N]" to the path.
func (p *TypePath) Array(n int64) *TypePath {
	if len(p.parts) == 0 {
		return &TypePath{parts: []string{"[" + strconv.FormatInt(n, 10) + "]"}}
	}

	newParts := make([]string, len(p.parts))
	copy(newParts, p.parts)
	newParts[len(newParts)-1] += "[" + strconv.FormatInt(n, 10) + "]"

	return &TypePath{parts: newParts}
}

// String returns the full path string.
func (p *TypePath) String() string {
	return strings.Join(p.parts, ".")
}

// ShortName returns the package-local spelling of a type for messages.
func ShortName(t *TypeInfo) string {
	if t == nil {
		return "<nil>"
	}

	if t.IsNamed() {
		return t.ID.Name
	}

	return t.String()
}

// SortTypes sorts named types by TypeID.
func SortTypes(types []*TypeInfo) {
	sort.Slice(types, func(i, j int) bool {
		return types[i].ID.String() < types[j].ID.String()
	})
}
