package synonym

import (
	"fmt"
	"strings"

	"github.com/lexicard/lexicard-api/internal/domain"
)

// Item is one node of the synonym graph, typically a card.
type Item struct {
	ID   string
	Word string
}

// Graph records, for each item, the other items whose words it listed as
// related. Edges are directed: "A lists B" does not imply "B lists A".
type Graph struct {
	items []Item
	index map[string]int
	out   [][]int
}

// BuildGraph indexes items by their case-folded, trimmed word and adds an
// edge item -> other for every related word of item that names a different
// item. Items with a blank word cannot be reached by any edge. When two items
// share a word the later one wins. Duplicate item IDs after the first are
// ignored.
func BuildGraph(items []Item, related map[string][]string) *Graph {
	g := &Graph{
		index: make(map[string]int, len(items)),
	}
	for _, it := range items {
		if _, dup := g.index[it.ID]; dup {
			continue
		}
		g.index[it.ID] = len(g.items)
		g.items = append(g.items, it)
	}
	g.out = make([][]int, len(g.items))

	wordToNode := make(map[string]int, len(g.items))
	for i, it := range g.items {
		if w := normalizeWord(it.Word); w != "" {
			wordToNode[w] = i
		}
	}

	for i, it := range g.items {
		seen := make(map[int]struct{})
		for _, w := range related[it.ID] {
			j, ok := wordToNode[normalizeWord(w)]
			if !ok || j == i {
				continue
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			g.out[i] = append(g.out[i], j)
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.items)
}

// HasEdge reports whether the item with ID from listed the item with ID to.
func (g *Graph) HasEdge(from, to string) bool {
	i, ok := g.index[from]
	if !ok {
		return false
	}
	j, ok := g.index[to]
	if !ok {
		return false
	}
	for _, k := range g.out[i] {
		if k == j {
			return true
		}
	}
	return false
}

// Mode selects how edges are followed when grouping.
type Mode int

const (
	// ModeSymmetric treats every edge as mutual before grouping, so an item
	// joins a group whenever either side listed the other.
	ModeSymmetric Mode = iota
	// ModeDirected follows recorded edges forward only. Whether two items
	// end up together then depends on which one is visited first.
	ModeDirected
)

func (m Mode) String() string {
	switch m {
	case ModeDirected:
		return "directed"
	case ModeSymmetric:
		return "symmetric"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "directed" or "symmetric".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "directed":
		return ModeDirected, nil
	case "symmetric", "":
		return ModeSymmetric, nil
	default:
		return 0, fmt.Errorf("unknown cluster mode %q", s)
	}
}

// Clusterer groups the items of a Graph.
type Clusterer struct {
	Mode Mode
}

// Cluster runs a depth-first traversal from every unvisited node in input
// order and returns each component of two or more items as a group. Groups
// follow the order of their start nodes; members follow traversal preorder.
func (c Clusterer) Cluster(g *Graph) []domain.SynonymGroup {
	adj := g.out
	if c.Mode == ModeSymmetric {
		adj = symmetrize(g.out)
	}

	visited := make([]bool, len(g.items))
	var groups []domain.SynonymGroup
	for start := range g.items {
		if visited[start] {
			continue
		}
		component := traverse(adj, start, visited)
		if len(component) < 2 {
			continue
		}
		group := domain.SynonymGroup{
			ItemIDs: make([]string, len(component)),
			Words:   make([]string, len(component)),
		}
		for k, n := range component {
			group.ItemIDs[k] = g.items[n].ID
			group.Words[k] = g.items[n].Word
		}
		groups = append(groups, group)
	}
	return groups
}

// traverse returns the nodes reachable from start in depth-first preorder,
// visiting neighbours in adjacency order.
func traverse(adj [][]int, start int, visited []bool) []int {
	var order []int
	stack := []int{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		order = append(order, n)
		for k := len(adj[n]) - 1; k >= 0; k-- {
			if !visited[adj[n][k]] {
				stack = append(stack, adj[n][k])
			}
		}
	}
	return order
}

// symmetrize adds the reverse of every edge, keeping forward edges first.
func symmetrize(out [][]int) [][]int {
	adj := make([][]int, len(out))
	has := make([]map[int]struct{}, len(out))
	add := func(from, to int) {
		if has[from] == nil {
			has[from] = make(map[int]struct{})
		}
		if _, ok := has[from][to]; ok {
			return
		}
		has[from][to] = struct{}{}
		adj[from] = append(adj[from], to)
	}
	for i, targets := range out {
		for _, j := range targets {
			add(i, j)
		}
	}
	for i, targets := range out {
		for _, j := range targets {
			add(j, i)
		}
	}
	return adj
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}
