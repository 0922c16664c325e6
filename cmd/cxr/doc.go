// Package main hosts the cxr CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the three pipeline stages in order:
// preprocess decodes and normalizes the source images into the array store,
// train fits the classifier over the preprocessed arrays, and evaluate
// scores the best checkpoint on the held-out split. Journal inspection and
// configuration scaffolding round out the surface.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
