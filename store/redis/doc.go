// Package redis provides a CanvasStore over Redis for deployments that
// already run one. Canvas records live under a configurable key prefix
// with an ID index set, optionally with a TTL.
package redis
