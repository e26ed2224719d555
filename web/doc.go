// Package web brings outside content onto the canvas: Brave web search
// materialized as Search and Reference nodes, and page fetching with
// readable-text extraction and sanitization into FetchResult nodes.
package web
