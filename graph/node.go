package graph

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NodeID uniquely identifies a node for the lifetime of the canvas.
type NodeID string

// EdgeID uniquely identifies an edge for the lifetime of the canvas.
type EdgeID string

// TagID identifies a user-defined tag applied to nodes.
type TagID string

// NewNodeID mints a fresh node identifier.
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// NewEdgeID mints a fresh edge identifier.
func NewEdgeID() EdgeID {
	return EdgeID(uuid.NewString())
}

// NodeKind is the closed set of node variants on the canvas.
type NodeKind string

const (
	KindHuman       NodeKind = "human"
	KindAI          NodeKind = "ai"
	KindNote        NodeKind = "note"
	KindSummary     NodeKind = "summary"
	KindReference   NodeKind = "reference"
	KindSearch      NodeKind = "search"
	KindResearch    NodeKind = "research"
	KindHighlight   NodeKind = "highlight"
	KindMatrix      NodeKind = "matrix"
	KindCell        NodeKind = "cell"
	KindRow         NodeKind = "row"
	KindColumn      NodeKind = "column"
	KindFetchResult NodeKind = "fetch_result"
	KindPdf         NodeKind = "pdf"
	KindOpinion     NodeKind = "opinion"
	KindSynthesis   NodeKind = "synthesis"
	KindReview      NodeKind = "review"
	KindImage       NodeKind = "image"
	KindFlashcard   NodeKind = "flashcard"
	KindCsv         NodeKind = "csv"
	KindCode        NodeKind = "code"
)

// Conversational reports whether nodes of this kind are eligible for
// context resolution. All other kinds participate in the graph but are
// never sent to a model.
func (k NodeKind) Conversational() bool {
	switch k {
	case KindHuman, KindAI, KindNote, KindHighlight, KindImage:
		return true
	default:
		return false
	}
}

// UserAuthored reports whether content of this kind originates from the
// user rather than a model. Determines the role in resolved messages.
func (k NodeKind) UserAuthored() bool {
	switch k {
	case KindHuman, KindNote, KindHighlight, KindImage:
		return true
	default:
		return false
	}
}

// EdgeKind is the closed set of edge variants.
type EdgeKind string

const (
	EdgeReply        EdgeKind = "reply"
	EdgeMerge        EdgeKind = "merge"
	EdgeReference    EdgeKind = "reference"
	EdgeSearchResult EdgeKind = "search_result"
	EdgeHighlight    EdgeKind = "highlight"
	EdgeOpinion      EdgeKind = "opinion"
	EdgeReview       EdgeKind = "review"
	EdgeSynthesis    EdgeKind = "synthesis"
	EdgeMatrixCell   EdgeKind = "matrix_cell"
)

// Position is a node's canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a node's rendered dimensions. The zero value means "not yet
// measured"; layout substitutes kind defaults.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether the size has not been set.
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// Version is one entry in a node's edit history.
type Version struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// Node is a single element of the conversation graph.
type Node struct {
	ID        NodeID             `json:"id"`
	Kind      NodeKind           `json:"kind"`
	Content   string             `json:"content"`
	Position  Position           `json:"position"`
	Size      Size               `json:"size,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	Model     string             `json:"model,omitempty"`
	Tags      map[TagID]struct{} `json:"tags,omitempty"`
	// Summary doubles as the node's display title once generated.
	Summary  string    `json:"summary,omitempty"`
	Versions []Version `json:"versions,omitempty"`

	// Image payloads for image-like nodes.
	ImageData string `json:"image_data,omitempty"`
	MIMEType  string `json:"mime_type,omitempty"`

	// Matrix-specific fields, empty for other kinds.
	RowItems []string          `json:"row_items,omitempty"`
	ColItems []string          `json:"col_items,omitempty"`
	Cells    map[string]string `json:"cells,omitempty"`
}

// CellKey builds the Cells map key for a matrix coordinate.
func CellKey(row, col int) string {
	return fmt.Sprintf("%d:%d", row, col)
}

// Clone returns a deep copy of the node. Undo snapshots rely on clones so
// later mutations cannot reach back into recorded state.
func (n Node) Clone() Node {
	c := n
	if n.Tags != nil {
		c.Tags = make(map[TagID]struct{}, len(n.Tags))
		for t := range n.Tags {
			c.Tags[t] = struct{}{}
		}
	}
	if n.Versions != nil {
		c.Versions = append([]Version(nil), n.Versions...)
	}
	if n.RowItems != nil {
		c.RowItems = append([]string(nil), n.RowItems...)
	}
	if n.ColItems != nil {
		c.ColItems = append([]string(nil), n.ColItems...)
	}
	if n.Cells != nil {
		c.Cells = make(map[string]string, len(n.Cells))
		for k, v := range n.Cells {
			c.Cells[k] = v
		}
	}
	return c
}

// Edge is a directed, typed connection between two nodes.
type Edge struct {
	ID     EdgeID   `json:"id"`
	Source NodeID   `json:"source"`
	Target NodeID   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// Message is one model-ready entry produced by context resolution.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	NodeID    NodeID `json:"node_id"`
	ImageData string `json:"image_data,omitempty"`
	MIMEType  string `json:"mime_type,omitempty"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Snapshot is the persistence exchange form of a canvas: a complete,
// order-independent dump of nodes and edges.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
