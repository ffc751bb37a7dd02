// Package file provides the TOML configuration file adapter.
//
// A missing file is not an error: Load returns the built-in defaults, so a
// fresh install runs the five default sources without any setup.
package file
