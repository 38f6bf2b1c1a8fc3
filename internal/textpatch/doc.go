// Package textpatch applies idempotent, detection-guarded text
// transformations to vendored source files.
//
// A Patch pairs a cheap "already applied" predicate with one Transform. The
// engine reads the whole target, skips it when the predicate holds, applies
// the transform otherwise, and writes the file back only if the content
// changed. Writes replace the whole file through a temp file and rename, so a
// crash can never leave a half-patched target behind.
//
// # Transform kinds
//
//   - Literal: replace the first exact occurrence of a substring
//   - Anchored: replace the text between an ordered pair of markers
//   - Balanced: replace a whole C function found by signature, matching
//     braces while ignoring string literals and comments
//   - Regex: substitute with an explicit maximum replacement count
//   - Sequence: several transforms that must all apply, or none does
//
// # Failure semantics
//
// Nothing here returns an error to the caller. Every outcome is an
// ir.Status on the step result: a missing target, a malformed target
// (anchor not found) and an I/O failure are all "this patch was not
// installed this run" and never stop sibling patches or files.
//
// # Idempotence
//
// "Already applied" state lives in the file content itself (usually a marker
// comment the transform emits), so it survives process restarts and needs no
// bookkeeping. Every transform's output must satisfy its patch's predicate;
// VerifyIdempotent checks that property for tests.
package textpatch
