// Package training drives the classifier training loop: a weighted
// sigmoid cross-entropy objective, Adam updates at a fixed learning rate,
// a per-epoch validation pass, and checkpoints retained only for epochs
// that improve the monitored metric.
package training
