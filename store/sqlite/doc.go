// Package sqlite provides a CanvasStore backed by a local SQLite file,
// the default persistence for single-machine use.
package sqlite
