// Package postgres provides a CanvasStore over PostgreSQL using pgx. The
// pool is abstracted behind DBPool so tests can substitute pgxmock.
package postgres
