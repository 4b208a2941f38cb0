// Package config defines the fall-alarm settings and the helpers to load,
// validate and save them in YAML format.
//
// Settings are read once at startup. Zero values are replaced with the
// wristband defaults during validation, so a partial file is enough.
package config
