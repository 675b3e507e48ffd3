// Package metrics turns one exported dataset into upload, view and
// rate-limit counters, and folds per-file counters into campaign totals.
//
// Both Extract and Aggregate are pure: they never touch files, the network or
// the logger. Anything odd found in the data is returned as an
// entity.Warning for the caller to log or surface.
package metrics
