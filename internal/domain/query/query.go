// Package query defines the backend query tree and traversal helpers.
//
// A tree is the JSON body sent to the index backend: nested maps keyed by
// clause name (bool, wildcard, match, aggs, ...). Rewrites always operate on
// deep copies so callers keep their original request untouched.
package query

// Tree is a JSON-shaped query node.
type Tree map[string]any

// AsTree converts a decoded JSON value to a Tree when it is a map node.
func AsTree(v any) (Tree, bool) {
	switch n := v.(type) {
	case Tree:
		return n, true
	case map[string]any:
		return n, true
	default:
		return nil, false
	}
}

// Clone returns a deep copy of the tree.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for k, v := range t {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch n := v.(type) {
	case Tree:
		return n.Clone()
	case map[string]any:
		return Tree(n).Clone()
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Walk visits every map node in the tree pre-order, including t itself.
func (t Tree) Walk(visit func(node Tree)) {
	if t == nil {
		return
	}
	visit(t)
	for _, v := range t {
		walkValue(v, visit)
	}
}

func walkValue(v any, visit func(node Tree)) {
	switch n := v.(type) {
	case Tree:
		n.Walk(visit)
	case map[string]any:
		Tree(n).Walk(visit)
	case []any:
		for _, item := range n {
			walkValue(item, visit)
		}
	}
}

// Count returns the number of map nodes anywhere in the tree carrying key.
func (t Tree) Count(key string) int {
	total := 0
	t.Walk(func(node Tree) {
		if _, ok := node[key]; ok {
			total++
		}
	})
	return total
}

// Sub returns the child map node at key, if present.
func (t Tree) Sub(key string) (Tree, bool) {
	v, ok := t[key]
	if !ok {
		return nil, false
	}
	return AsTree(v)
}

// Int reads a numeric value at key, tolerating JSON float64 decoding.
func (t Tree) Int(key string) (int, bool) {
	switch n := t[key].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
