// Package manifest journals preprocessing work in SQLite so interrupted
// batch runs resume without re-decoding subjects that were already written.
//
// One row exists per deduplicated subject, carrying its split, label, and
// lifecycle status. The database lives beside the array tree it describes.
package manifest
