// Package model builds the binary classifier graph: a pretrained image
// backbone adapted to single-channel input and a single-logit output, or a
// compact scratch CNN for environments without pretrained weights.
package model
