// Package arrays stores preprocessed image tensors in a split/label
// directory tree and reads them back for training and evaluation.
package arrays
