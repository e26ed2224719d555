package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ericmjl/canvas-chat-sub001/graph"
	"github.com/ericmjl/canvas-chat-sub001/llm"
)

// CellError is one matrix cell's classified failure.
type CellError struct {
	Row  int
	Col  int
	Info *llm.ErrorInfo
}

// FillReport summarizes a fill-all run. Filled cells are reported as
// ready-to-push undo actions (before value always empty, since only
// unfilled cells are attempted); failures are listed per cell and never
// propagated as an error to the caller.
type FillReport struct {
	Actions []*graph.FillCellAction
	Errors  []CellError
}

// FillCell generates content for a single matrix cell. The fill runs as
// its own cancelable task registered under the matrix node, so StopMatrix
// aborts it. The resulting value is written to the matrix node's cell map
// in one update when the stream completes.
func (c *Controller) FillCell(ctx context.Context, matrixID graph.NodeID, row, col int, model string) (*graph.FillCellAction, *CellError) {
	node, ok := c.store.GetNode(matrixID)
	if !ok {
		return nil, &CellError{Row: row, Col: col, Info: llm.Classify(fmt.Errorf("matrix %s: %s", matrixID, graph.ErrNodeNotFound))}
	}

	key := graph.CellKey(row, col)
	cellCtx, cancel := context.WithCancel(ctx)
	c.registry.Register(string(matrixID), key, cancel)
	defer c.registry.Unregister(string(matrixID), key)
	defer cancel()

	base := c.resolver.ResolveContext([]graph.NodeID{matrixID})
	prompt := fmt.Sprintf(
		"Fill in the matrix cell at the intersection of row %q and column %q. Respond with the cell content only.",
		item(node.RowItems, row), item(node.ColItems, col),
	)
	messages := append(append([]graph.Message(nil), base...), graph.Message{Role: graph.RoleUser, Content: prompt})

	var buf strings.Builder
	err := c.client.StreamChat(cellCtx, llm.ChatRequest{Messages: messages, Model: model},
		func(ctx context.Context, chunk []byte) error {
			buf.Write(chunk)
			return nil
		})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// User abort: not an error, nothing written.
			return nil, nil
		}
		info := llm.Classify(err)
		if info == nil {
			return nil, nil
		}
		return nil, &CellError{Row: row, Col: col, Info: info}
	}

	value := buf.String()
	if _, uerr := c.store.UpdateNode(matrixID, func(n *graph.Node) {
		if n.Cells == nil {
			n.Cells = make(map[string]string)
		}
		n.Cells[key] = value
	}); uerr != nil {
		// Matrix deleted while the cell streamed; drop the write.
		c.logger.Debug("generate: matrix %s deleted mid-fill, dropping cell %s", matrixID, key)
		return nil, nil
	}

	return &graph.FillCellAction{ID: matrixID, Row: row, Col: col, After: value}, nil
}

// FillAll fills every currently unfilled cell of the matrix node, one
// independent session per cell. A cell's failure (other than user abort)
// is recorded in the report but never cancels sibling cells and never
// surfaces as an error from FillAll itself; the only errors returned are
// precondition violations on the matrix node.
func (c *Controller) FillAll(ctx context.Context, matrixID graph.NodeID, model string) (*FillReport, error) {
	node, ok := c.store.GetNode(matrixID)
	if !ok {
		return nil, fmt.Errorf("fill matrix %s: %w", matrixID, graph.ErrNodeNotFound)
	}
	if node.Kind != graph.KindMatrix {
		return nil, fmt.Errorf("fill matrix %s (%s): %w", matrixID, node.Kind, graph.ErrNotMatrix)
	}

	report := &FillReport{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for row := range node.RowItems {
		for col := range node.ColItems {
			if node.Cells[graph.CellKey(row, col)] != "" {
				continue
			}
			wg.Add(1)
			go func(row, col int) {
				defer wg.Done()
				action, cellErr := c.FillCell(ctx, matrixID, row, col, model)
				mu.Lock()
				defer mu.Unlock()
				if action != nil {
					report.Actions = append(report.Actions, action)
				}
				if cellErr != nil {
					report.Errors = append(report.Errors, *cellErr)
				}
			}(row, col)
		}
	}
	wg.Wait()
	return report, nil
}

// StopMatrix aborts every in-flight cell fill for the matrix node at once
// and returns how many were canceled.
func (c *Controller) StopMatrix(matrixID graph.NodeID) int {
	return c.registry.CancelAll(string(matrixID))
}

func item(items []string, i int) string {
	if i >= 0 && i < len(items) {
		return items[i]
	}
	return fmt.Sprintf("#%d", i)
}
