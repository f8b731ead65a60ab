// Package match ranks type names by similarity for did-you-mean hints.
//
// Key functions:
//   - NormalizeIdent: normalizes identifiers for fuzzy matching
//   - Levenshtein: computes edit distance between strings
//   - Suggest: ranks candidate type names against an unknown reference
package match
