// Package graph implements the conversation canvas core: a DAG of typed
// nodes and edges with incrementally maintained adjacency indices, context
// resolution from node selections to model-ready message sequences,
// overlap-avoiding placement of new nodes, and a bounded snapshot-replay
// undo/redo log.
//
// The store is the single shared mutable resource. Everything else reads
// it (Resolver, LayoutEngine) or mutates it through recorded actions
// (UndoLog) and the generate package's streaming sessions.
package graph
