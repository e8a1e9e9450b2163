// Package constellation projects an orbit session into the graph of every
// movie ever visited and every connection ever traversed. The session's
// edge list may reference movies that branching has since truncated out of
// history; the projection keeps those edges but every traversal helper
// skips references it cannot resolve.
package constellation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rmax-ai/orbit/pkg/orbit"
)

// Node is one movie in the constellation. Visits counts how many history
// nodes reference it; Saved is true when any of them is saved.
type Node struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Year    int    `json:"year,omitempty"`
	Saved   bool   `json:"saved"`
	Visits  int    `json:"visits"`
	Current bool   `json:"current"`
	Entry   bool   `json:"entry"`
	// HistoryIndex is the most recent history position for this movie,
	// usable with Session.JumpToNode. -1 when the movie only survives in
	// the edge list.
	HistoryIndex int `json:"history_index"`
}

// Graph is a point-in-time projection of a session.
type Graph struct {
	Nodes map[string]*Node `json:"nodes"`
	Edges []orbit.Edge     `json:"edges"`
	// Order lists node ids by first visit.
	Order []string `json:"order"`
}

// Project builds the constellation for a session. The result is a snapshot
// and does not track later session mutations.
func Project(s *orbit.Session) *Graph {
	g := &Graph{Nodes: make(map[string]*Node)}

	history := s.History()
	idx := s.HistoryIndex()
	entry, _ := s.Entry()

	for i, hn := range history {
		n, ok := g.Nodes[hn.Movie.ID]
		if !ok {
			n = &Node{
				ID:           hn.Movie.ID,
				Title:        hn.Movie.Title,
				Year:         hn.Movie.Year,
				HistoryIndex: -1,
			}
			g.Nodes[n.ID] = n
			g.Order = append(g.Order, n.ID)
		}
		n.Visits++
		n.HistoryIndex = i
		if hn.Saved {
			n.Saved = true
		}
		if i == idx {
			n.Current = true
		}
		if hn.Movie.ID == entry.ID {
			n.Entry = true
		}
	}

	g.Edges = s.Edges()
	return g
}

// Neighbors returns the resolvable outgoing connections of a node, in edge
// order. Edges pointing at movies no longer present resolve to nothing.
func (g *Graph) Neighbors(id string) []orbit.Edge {
	var out []orbit.Edge
	for _, e := range g.Edges {
		if e.FromID != id {
			continue
		}
		if _, ok := g.Nodes[e.ToID]; !ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// DanglingEdges returns the edges whose target was truncated out of
// history, kept for completeness but skipped by rendering.
func (g *Graph) DanglingEdges() []orbit.Edge {
	var out []orbit.Edge
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.ToID]; !ok {
			out = append(out, e)
			continue
		}
		if _, ok := g.Nodes[e.FromID]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// Lines renders the constellation as plain text, one node per line with its
// resolvable connections underneath. The TUI styles these lines; this
// package stays presentation-free.
func (g *Graph) Lines() []string {
	var out []string
	for _, id := range g.Order {
		n := g.Nodes[id]
		marks := ""
		if n.Entry {
			marks += " ◉"
		}
		if n.Current {
			marks += " ←"
		}
		if n.Saved {
			marks += " ♥"
		}
		title := n.Title
		if n.Year > 0 {
			title = fmt.Sprintf("%s (%d)", n.Title, n.Year)
		}
		if n.Visits > 1 {
			title = fmt.Sprintf("%s ×%d", title, n.Visits)
		}
		out = append(out, strings.TrimRight(title+marks, " "))

		for _, e := range g.Neighbors(id) {
			to := g.Nodes[e.ToID]
			out = append(out, fmt.Sprintf("  └─%s→ %s", e.Type, to.Title))
		}
	}
	return out
}

// SavedTitles returns the saved movie titles sorted alphabetically.
func (g *Graph) SavedTitles() []string {
	var out []string
	for _, n := range g.Nodes {
		if n.Saved {
			out = append(out, n.Title)
		}
	}
	sort.Strings(out)
	return out
}
