// Package labels loads the subject label table, deduplicates it, and
// assigns the deterministic train/validation split.
package labels
