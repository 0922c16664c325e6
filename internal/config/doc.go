// Package config loads, normalizes, and validates cxr configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// CXR_DATA_ROOT. The Config type centralizes every knob the pipeline needs,
// so preprocessing, training, and evaluation discover their directories in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
