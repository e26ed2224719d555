package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"

	"github.com/ericmjl/canvas-chat-sub001/graph"
	"github.com/ericmjl/canvas-chat-sub001/store"
)

func testCanvas(t *testing.T) *store.Canvas {
	t.Helper()
	g := graph.NewStore()
	if _, err := g.AddNode(graph.Node{Kind: graph.KindHuman, Content: "hello"}); err != nil {
		t.Fatalf("seed graph: %v", err)
	}
	return &store.Canvas{
		ID:        "canvas-1",
		Title:     "Postgres canvas",
		Graph:     g.Snapshot(),
		UpdatedAt: time.Now(),
		Version:   1,
	}
}

func TestPostgresCanvasStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	cs := NewPostgresCanvasStoreWithPool(mock, "canvases")
	canvas := testCanvas(t)

	graphJSON, _ := json.Marshal(canvas.Graph)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO canvases")).
		WithArgs(
			canvas.ID,
			canvas.Title,
			graphJSON,
			canvas.UpdatedAt,
			canvas.Version,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = cs.Save(context.Background(), canvas)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCanvasStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	cs := NewPostgresCanvasStoreWithPool(mock, "canvases")
	canvas := testCanvas(t)
	graphJSON, _ := json.Marshal(canvas.Graph)

	rows := pgxmock.NewRows([]string{"id", "title", "graph", "updated_at", "version"}).
		AddRow(canvas.ID, canvas.Title, graphJSON, canvas.UpdatedAt, canvas.Version)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, graph, updated_at, version")).
		WithArgs(canvas.ID).
		WillReturnRows(rows)

	loaded, err := cs.Load(context.Background(), canvas.ID)
	assert.NoError(t, err)
	assert.Equal(t, canvas.Title, loaded.Title)
	assert.Len(t, loaded.Graph.Nodes, 1)
	assert.Equal(t, "hello", loaded.Graph.Nodes[0].Content)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCanvasStore_LoadNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	cs := NewPostgresCanvasStoreWithPool(mock, "canvases")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, graph, updated_at, version")).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err = cs.Load(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrCanvasNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCanvasStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	cs := NewPostgresCanvasStoreWithPool(mock, "canvases")
	canvas := testCanvas(t)
	graphJSON, _ := json.Marshal(canvas.Graph)

	rows := pgxmock.NewRows([]string{"id", "title", "graph", "updated_at", "version"}).
		AddRow("canvas-2", "Newer", graphJSON, canvas.UpdatedAt, 2).
		AddRow(canvas.ID, canvas.Title, graphJSON, canvas.UpdatedAt.Add(-time.Hour), canvas.Version)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, graph, updated_at, version")).
		WillReturnRows(rows)

	list, err := cs.List(context.Background())
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "canvas-2", list[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCanvasStore_DeleteAndClear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	cs := NewPostgresCanvasStoreWithPool(mock, "canvases")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM canvases WHERE id = $1")).
		WithArgs("canvas-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	assert.NoError(t, cs.Delete(context.Background(), "canvas-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM canvases")).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	assert.NoError(t, cs.Clear(context.Background()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCanvasStore_SaveError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	cs := NewPostgresCanvasStoreWithPool(mock, "canvases")
	canvas := testCanvas(t)
	graphJSON, _ := json.Marshal(canvas.Graph)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO canvases")).
		WithArgs(canvas.ID, canvas.Title, graphJSON, canvas.UpdatedAt, canvas.Version).
		WillReturnError(errors.New("connection lost"))

	err = cs.Save(context.Background(), canvas)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
