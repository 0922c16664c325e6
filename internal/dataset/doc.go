// Package dataset exposes the preprocessed array tree as a GoMLX training
// dataset, applying stored-statistics normalization to every sample and
// randomized geometric augmentation to training samples only.
package dataset
