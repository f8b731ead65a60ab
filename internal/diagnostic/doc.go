// Package diagnostic provides structured errors, warnings and notes for
// marshalling-plan resolution.
//
// Every entry carries a Class from the resolution taxonomy:
//   - fatal-definition: the type can never be passed until fixed
//   - fatal-use: one particular use cannot be marshalled
//   - downgrade: a direction is unsupported and uses needing it are rejected
//   - advisory: an optional capability (pinning) is dropped with a warning
//
// Diagnostics are accumulated per type and use site so one failure never
// hides results for unrelated types.
package diagnostic
