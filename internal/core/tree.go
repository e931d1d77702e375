package core

// CategoryNode is a category with its direct children.
type CategoryNode struct {
	Category Category
	Children []*CategoryNode
}

// BuildCategoryTree turns a flat list into a forest. Categories whose parent
// is missing from the list become roots. Children keep list order.
func BuildCategoryTree(categories []Category) []*CategoryNode {
	nodes := make(map[string]*CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &CategoryNode{Category: c}
	}

	roots := []*CategoryNode{}
	for _, c := range categories {
		n := nodes[c.ID]
		parent, ok := nodes[c.ParentID]
		if c.ParentID == "" || !ok || c.ParentID == c.ID {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}

// CategoryDepth returns how many levels the chain from id up to its root has:
// 1 for a root. A cycle or unknown id yields 0.
func CategoryDepth(categories []Category, id string) int {
	parents := make(map[string]string, len(categories))
	for _, c := range categories {
		parents[c.ID] = c.ParentID
	}
	if _, ok := parents[id]; !ok {
		return 0
	}

	depth := 0
	seen := make(map[string]bool)
	for cur := id; cur != ""; cur = parents[cur] {
		if seen[cur] {
			return 0
		}
		seen[cur] = true
		depth++
		if _, ok := parents[parents[cur]]; !ok {
			break
		}
	}
	return depth
}

// Height is the number of levels in the subtree rooted at n, n included.
func (n *CategoryNode) Height() int {
	h := 0
	for _, c := range n.Children {
		if ch := c.Height(); ch > h {
			h = ch
		}
	}
	return h + 1
}
