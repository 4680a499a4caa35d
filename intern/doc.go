// Package intern deduplicates immutable values into shared, reference-counted
// handles.
//
// Interning an equal value twice returns the same *Handle, so downstream
// code can compare handles by pointer. Each Intern is paired with a Release;
// when the last reference goes away the value leaves the table and a later
// Intern allocates a fresh handle.
//
// Interned values must be comparable, which keeps payloads value-like: a
// handle cannot point back into the table that owns it.
//
// Atoms is a string interner with helpers for HTML whitespace tokens and
// case-insensitive names.
package intern
