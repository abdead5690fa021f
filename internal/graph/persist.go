package graph

import (
	"context"
	"encoding/json"

	"github.com/pkgforge/feedbot/internal/store"
)

const summaryKey = "graph:summary"

// Summary is a flattened, JSON-serializable view of a Graph: every node's
// name and the names of the nodes it depends on, sorted for deterministic
// output.
type Summary struct {
	Nodes map[string][]string `json:"nodes"`
}

// Persist writes a Summary of g into the store, so make-graph
// --update-nodes-and-edges leaves a cheap-to-read snapshot behind for
// tooling that doesn't want to recompute the graph from every package
// record (e.g. the status reporter's --serve debug mode, future
// visualizations).
func Persist(ctx context.Context, s *store.Store, g *Graph) error {
	summary := Summary{Nodes: make(map[string][]string, len(g.nodes))}
	for _, name := range g.Names() {
		summary.Nodes[name] = g.Successors(name)
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = s.PutBytes(ctx, store.Key(summaryKey), data)
	return err
}

// LoadSummary reads back the Summary Persist wrote, if any.
func LoadSummary(ctx context.Context, s *store.Store) (*Summary, error) {
	raw, err := s.GetBytes(ctx, store.Key(summaryKey))
	if err == store.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
