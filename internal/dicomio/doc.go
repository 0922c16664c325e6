// Package dicomio decodes per-subject medical images into normalized
// single-channel intensity grids at a fixed resolution.
package dicomio
