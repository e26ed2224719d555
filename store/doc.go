// Package store persists canvas snapshots.
//
// A Canvas record bundles a graph.Snapshot with its title and version.
// CanvasStore is the persistence interface; the memory, file, sqlite,
// redis, and postgres subpackages implement it. The Committer bridges a
// live graph to a CanvasStore: it marks the canvas dirty on every
// mutation and writes snapshots on Flush or on a timer via Run.
package store
