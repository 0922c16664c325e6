// Package evaluate restores the best training checkpoint and scores the
// validation split: per-sample sigmoid probabilities classified at each
// configured decision threshold, reported as accuracy, precision, recall,
// and a confusion matrix.
package evaluate
