// Package preprocess converts the raw label table and per-subject medical
// images into the normalized, resized array tree the training stage
// consumes, and computes training-split normalization statistics on the
// way through.
package preprocess
