// Package orchestrator wires the store -> decorators -> compiler -> renderer
// pipeline behind a single Generate call so adapters (CLI, HTTP) render a
// group without repeating the plumbing.
package orchestrator
