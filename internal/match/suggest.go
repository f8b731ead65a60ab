package match

import (
	"sort"
	"strings"
)

// DefaultThreshold is the minimum similarity for a name to be suggested.
const DefaultThreshold = 0.6

// foreignPackagePenalty lowers the score of candidates outside the package
// named by a qualified query.
const foreignPackagePenalty = 0.2

// Suggest returns up to limit candidates resembling name, best first.
// Names are "pkg/path.Name" strings; the type names are compared after
// NormalizeIdent, and a qualified query prefers
// candidates whose package path ends with its package.
func Suggest(name string, candidates []string, limit int) []string {
	type scored struct {
		name  string
		score float64
	}

	wantPkg, wantName := split(name)
	want := NormalizeIdent(wantName)

	var hits []scored

	seen := make(map[string]bool)

	for _, c := range candidates {
		if c == name || seen[c] {
			continue
		}

		seen[c] = true

		pkg, typeName := split(c)

		score := Similarity(want, NormalizeIdent(typeName))
		if wantPkg != "" && pkg != wantPkg && !strings.HasSuffix(pkg, "/"+wantPkg) {
			score -= foreignPackagePenalty
		}

		if score >= DefaultThreshold {
			hits = append(hits, scored{name: c, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}

		return hits[i].name < hits[j].name
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}

	return out
}

// split separates "pkg/path.Name" into its package path and name.
func split(s string) (string, string) {
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[:idx], s[idx+1:]
	}

	return "", s
}
