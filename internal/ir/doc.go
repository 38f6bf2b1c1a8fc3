// Package ir provides the shared report types and content-addressed hashing
// used across mdxprep.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps it the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Outcomes are values (Status), never errors: nothing a single step does
//     may abort a run
//   - All JSON tags use snake_case
//   - Hashes are domain-separated SHA-256, hex encoded
package ir
