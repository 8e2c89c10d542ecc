// Package constants centralizes scanning defaults shared across the library.
//
// Keeping timeouts, body caps, and classification thresholds in one place
// prevents magic numbers from scattering across internal/, and lets the
// config package reference the same defaults without import cycles.
package constants
