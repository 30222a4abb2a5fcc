package service

import (
	"sort"

	"karmafeed/internal/models"
)

func createdBefore(a, b models.CommentRow) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// BuildCommentForest turns the flat rows of one post into a reply forest.
//
// Roots and every children list are in creation order (created_at, then id).
// A row whose parent is not among the rows becomes a root. Parent links that
// form a cycle are broken by promoting the earliest comment of the cycle, so
// every row appears exactly once. The walk is iterative and linear in the
// number of rows.
func BuildCommentForest(rows []models.CommentRow) []*models.CommentNode {
	if len(rows) == 0 {
		return []*models.CommentNode{}
	}

	if !sort.SliceIsSorted(rows, func(i, j int) bool { return createdBefore(rows[i], rows[j]) }) {
		sorted := make([]models.CommentRow, len(rows))
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool { return createdBefore(sorted[i], sorted[j]) })
		rows = sorted
	}

	const root = -1

	index := make(map[uint]int, len(rows))
	for i, r := range rows {
		index[r.ID] = i
	}

	parent := make([]int, len(rows))
	children := make([][]int, len(rows))
	for i, r := range rows {
		parent[i] = root
		if r.ParentID == nil || *r.ParentID == r.ID {
			continue
		}
		if p, ok := index[*r.ParentID]; ok {
			parent[i] = p
			children[p] = append(children[p], i)
		}
	}

	reached := make([]bool, len(rows))
	stack := make([]int, 0, len(rows))
	mark := func(from int) {
		stack = append(stack[:0], from)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if reached[n] {
				continue
			}
			reached[n] = true
			stack = append(stack, children[n]...)
		}
	}

	for i := range rows {
		if parent[i] == root {
			mark(i)
		}
	}

	// Anything still unreached hangs off a parent cycle.
	for i := range rows {
		if reached[i] {
			continue
		}
		onCycle := i
		seen := map[int]bool{}
		for !seen[onCycle] {
			seen[onCycle] = true
			onCycle = parent[onCycle]
		}
		head := onCycle
		for m := parent[onCycle]; m != onCycle; m = parent[m] {
			if m < head {
				head = m
			}
		}

		siblings := children[parent[head]]
		for k, c := range siblings {
			if c == head {
				children[parent[head]] = append(siblings[:k:k], siblings[k+1:]...)
				break
			}
		}
		parent[head] = root
		mark(head)
	}

	nodes := make([]*models.CommentNode, len(rows))
	for i, r := range rows {
		nodes[i] = models.NewCommentNode(r)
	}

	forest := make([]*models.CommentNode, 0)
	for i := range rows {
		for _, c := range children[i] {
			nodes[i].Children = append(nodes[i].Children, nodes[c])
		}
		if parent[i] == root {
			forest = append(forest, nodes[i])
		}
	}
	return forest
}
