// Package pkgroutine contains helpers for running goroutines safely.
//
// The Manager type limits concurrency, collects returned errors and turns
// panics into errors so a broken task does not take the process down.
// ForEach fans a fixed number of indexed tasks out over a Manager.
package pkgroutine
