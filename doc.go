// Package canvaschat is the core of a graph-based conversation canvas.
//
// Conversations live on an infinite canvas as a directed acyclic graph of
// typed nodes instead of a linear thread. The graph package holds the
// store, context resolution, layout, and undo; llm abstracts streaming
// model backends; generate runs concurrent sessions, matrix fills, and
// committees; store persists canvas snapshots; web pulls in search results
// and fetched pages; export renders diagrams and transcripts.
package canvaschat
