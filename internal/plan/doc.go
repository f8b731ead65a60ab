// Package plan turns strategy selectors and shadow descriptors into
// MarshallingPlans consumed by code generation.
//
// Resolution pass:
//  1. Analyze packages → type graph with declarations and use sites
//  2. Apply the YAML declaration file (optional)
//  3. For every declared type and every use site, concurrently:
//     - Select a strategy by declaration precedence
//     - Validate the shadow type, once per shadow
//     - Compose the plan and check the site's direction and stack frame
//  4. Merge per-item diagnostics, sort plans and diagnostics
//
// Plans with Valid == false must not be used for code generation. A
// failure of one item never affects another.
package plan
