// Package menu builds the navigation forest a subject sees from the
// flat menu entries the identity backend returns.
package menu

import (
	"sort"

	"dsm-gateway/internal/model"
)

// Node is a menu entry with its resolved children, ordered by OrderNum.
type Node struct {
	Item     model.MenuItem
	Children []*Node
}

// Build assembles an ordered forest from flat entries. Entries whose
// parent is missing are promoted to roots, so a partial (permission
// filtered) list still renders. Self-parented entries are treated as
// roots to keep the result cycle free.
func Build(items []model.MenuItem) []*Node {
	nodes := make(map[int64]*Node, len(items))
	for _, item := range items {
		nodes[item.ID] = &Node{Item: item}
	}

	var roots []*Node
	for _, item := range items {
		node := nodes[item.ID]
		if item.ParentID == nil || *item.ParentID == item.ID {
			roots = append(roots, node)
			continue
		}

		parent, ok := nodes[*item.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortNodes(roots)
	for _, node := range nodes {
		sortNodes(node.Children)
	}

	return roots
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Item.OrderNum != nodes[j].Item.OrderNum {
			return nodes[i].Item.OrderNum < nodes[j].Item.OrderNum
		}
		return nodes[i].Item.ID < nodes[j].Item.ID
	})
}

// Walk visits every node of the forest depth first in display order.
// Traversal is iterative with an explicit stack, so depth is bounded by
// memory rather than the goroutine stack, and revisits are suppressed
// in case the input was not a proper forest.
func Walk(roots []*Node, visit func(*Node)) {
	stack := make([]*Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}

	seen := make(map[int64]struct{})
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, dup := seen[node.Item.ID]; dup {
			continue
		}
		seen[node.Item.ID] = struct{}{}

		visit(node)
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
}

// Paths returns every reachable menu path in display order.
func Paths(roots []*Node) []string {
	var out []string
	Walk(roots, func(n *Node) {
		out = append(out, n.Item.Path)
	})

	return out
}
