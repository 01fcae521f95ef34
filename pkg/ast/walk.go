package ast

// Walk traverses the tree rooted at node in pre-order, calling fn for each
// node. If fn returns false, Walk stops traversing that branch.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range node.Children() {
		Walk(child, fn)
	}
}

// ChildAt returns the child at index, or nil when the index is out of range.
func ChildAt(node Node, index int) Node {
	if node == nil || index < 0 {
		return nil
	}
	children := node.Children()
	if index >= len(children) {
		return nil
	}
	return children[index]
}
