package graph

import "errors"

var (
	// ErrNodeNotFound is returned when an operation references a node id
	// that is not present in the store.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned when an operation references an edge id
	// that is not present in the store.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrDuplicateID is returned when adding a node or edge whose id is
	// already present. IDs are unique for the lifetime of the canvas.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrNotMatrix is returned when a matrix operation targets a node
	// that is not a matrix node.
	ErrNotMatrix = errors.New("node is not a matrix")
)
