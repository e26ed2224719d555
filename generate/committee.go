package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericmjl/canvas-chat-sub001/graph"
	"github.com/ericmjl/canvas-chat-sub001/llm"
)

const opinionInstruction = "Give your independent opinion on the discussion above. Be direct about disagreements."

// CommitteeResult reports a committee run: the opinion nodes created (one
// per model), the synthesis node combining the successful opinions, and
// per-model failures. A member's failure never cancels its siblings.
type CommitteeResult struct {
	OpinionIDs  []graph.NodeID
	SynthesisID graph.NodeID
	Errors      map[string]*llm.ErrorInfo
}

// Committee asks every listed model for an independent opinion on the
// selected node's conversation, as concurrent sessions writing into fresh
// Opinion nodes, then generates a Synthesis node from the opinions that
// completed. Blocks until the synthesis settles. Member sessions are
// registered under the committee node, so StopCommittee aborts them all.
func (c *Controller) Committee(ctx context.Context, nodeID graph.NodeID, models []string) (*CommitteeResult, error) {
	if _, ok := c.store.GetNode(nodeID); !ok {
		return nil, fmt.Errorf("committee %s: %w", nodeID, graph.ErrNodeNotFound)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("committee %s: no models given", nodeID)
	}

	base := c.resolver.ResolveContext([]graph.NodeID{nodeID})
	result := &CommitteeResult{Errors: make(map[string]*llm.ErrorInfo)}

	// Fan out: one opinion node and session per model.
	memberByID := make(map[graph.NodeID]string, len(models))
	for _, model := range models {
		opinion, err := c.store.AddNode(graph.Node{
			Kind:     graph.KindOpinion,
			Model:    model,
			Position: c.layout.AutoPosition([]graph.NodeID{nodeID}),
		})
		if err != nil {
			return nil, fmt.Errorf("committee %s: %w", nodeID, err)
		}
		if _, err := c.store.AddEdge(graph.Edge{Source: nodeID, Target: opinion.ID, Kind: graph.EdgeOpinion}); err != nil {
			return nil, fmt.Errorf("committee %s: %w", nodeID, err)
		}
		result.OpinionIDs = append(result.OpinionIDs, opinion.ID)
		memberByID[opinion.ID] = model

		messages := append(append([]graph.Message(nil), base...),
			graph.Message{Role: graph.RoleUser, Content: opinionInstruction})

		mctx, mcancel := context.WithCancel(ctx)
		c.registry.Register(string(nodeID), string(opinion.ID), mcancel)
		if err := c.Start(mctx, opinion.ID, RequestContext{
			Messages:          messages,
			Model:             model,
			OriginatingNodeID: nodeID,
		}); err != nil {
			c.registry.Unregister(string(nodeID), string(opinion.ID))
			mcancel()
			return nil, fmt.Errorf("committee %s: %w", nodeID, err)
		}
	}

	// All members run concurrently; waits settle them one by one.
	for _, opID := range result.OpinionIDs {
		c.Wait(opID)
		c.registry.Cancel(string(nodeID), string(opID))
		if info := c.NodeError(opID); info != nil {
			result.Errors[memberByID[opID]] = info
		}
	}

	// Synthesize from the opinions that completed.
	var sb strings.Builder
	sb.WriteString("Synthesize the following committee opinions into one balanced answer. Note where they disagree.\n")
	completed := 0
	for _, opID := range result.OpinionIDs {
		node, ok := c.store.GetNode(opID)
		if !ok || node.Content == "" || result.Errors[memberByID[opID]] != nil {
			continue
		}
		completed++
		fmt.Fprintf(&sb, "\n[%s]\n%s\n", node.Model, node.Content)
	}
	if completed == 0 {
		return result, nil
	}

	synthesis, err := c.store.AddNode(graph.Node{
		Kind:     graph.KindSynthesis,
		Model:    models[0],
		Position: c.layout.AutoPosition(result.OpinionIDs),
	})
	if err != nil {
		return result, fmt.Errorf("committee %s: %w", nodeID, err)
	}
	for _, opID := range result.OpinionIDs {
		if result.Errors[memberByID[opID]] != nil {
			continue
		}
		if _, err := c.store.AddEdge(graph.Edge{Source: opID, Target: synthesis.ID, Kind: graph.EdgeSynthesis}); err != nil {
			return result, fmt.Errorf("committee %s: %w", nodeID, err)
		}
	}
	result.SynthesisID = synthesis.ID

	messages := append(append([]graph.Message(nil), base...),
		graph.Message{Role: graph.RoleUser, Content: sb.String()})
	if err := c.Start(ctx, synthesis.ID, RequestContext{
		Messages:          messages,
		Model:             models[0],
		OriginatingNodeID: nodeID,
	}); err != nil {
		return result, fmt.Errorf("committee %s: %w", nodeID, err)
	}
	c.Wait(synthesis.ID)
	return result, nil
}

// StopCommittee aborts every in-flight committee member for the node.
func (c *Controller) StopCommittee(nodeID graph.NodeID) int {
	return c.registry.CancelAll(string(nodeID))
}
