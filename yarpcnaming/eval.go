// Copyright (c) 2024 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package yarpcnaming

import "fmt"

// Eval rewrites every Leaf in tree by finding the last Dentry in dtab whose
// Prefix is a path-prefix of the leaf, substituting the matched prefix with
// the entry's Tree and concatenating the unmatched suffix onto every leaf
// reachable from that substituted tree, then recursing into the result. A
// Leaf matching no Dentry is resolved by a registered Namer instead; if no
// namer claims it either, it is left unbound (reported via the returned
// bool).
func Eval(dtab Dtab, tree NameTree) (NameTree, bool) {
	switch t := tree.(type) {
	case Leaf:
		return evalLeaf(dtab, t)
	case Union:
		var children []NameTree
		for _, c := range t.Children {
			if resolved, ok := Eval(dtab, c); ok {
				children = append(children, resolved)
			}
		}
		if len(children) == 0 {
			return nil, false
		}
		return Union{Children: children}, true
	case Weighted:
		resolved, ok := Eval(dtab, t.Tree)
		if !ok {
			return nil, false
		}
		return Weighted{Weight: t.Weight, Tree: resolved}, true
	case Neg:
		if _, ok := Eval(dtab, t.Tree); ok {
			return nil, false
		}
		return nil, false
	default:
		return nil, false
	}
}

func evalLeaf(dtab Dtab, leaf Leaf) (NameTree, bool) {
	for i := len(dtab) - 1; i >= 0; i-- {
		entry := dtab[i]
		if !leaf.Path.HasPrefix(entry.Prefix) {
			continue
		}
		suffix := leaf.Path[len(entry.Prefix):]
		substituted := appendSuffix(entry.Tree, suffix)
		return Eval(dtab, substituted)
	}
	for _, namer := range builtinNamers {
		names, ok, err := namer.Bind(leaf.Path)
		if !ok {
			continue
		}
		if err != nil {
			return nil, false
		}
		return boundLeaf{path: leaf.Path, names: names}, true
	}
	return nil, false
}

// boundLeaf is a Leaf that Eval has already resolved to its namer's answer.
// resolve reads names straight off it instead of consulting builtinNamers a
// second time for a leaf Eval has already settled.
type boundLeaf struct {
	path  Path
	names []BoundName
}

func (boundLeaf) isNameTree() {}

func (b boundLeaf) String() string { return b.path.String() }

// appendSuffix concatenates suffix onto every Leaf reachable from tree,
// leaving the tree's shape (unions, weights, negations) intact.
func appendSuffix(tree NameTree, suffix Path) NameTree {
	switch t := tree.(type) {
	case Leaf:
		return Leaf{Path: t.Path.Concat(suffix)}
	case Union:
		children := make([]NameTree, len(t.Children))
		for i, c := range t.Children {
			children[i] = appendSuffix(c, suffix)
		}
		return Union{Children: children}
	case Weighted:
		return Weighted{Weight: t.Weight, Tree: appendSuffix(t.Tree, suffix)}
	case Neg:
		return Neg{Tree: appendSuffix(t.Tree, suffix)}
	default:
		return tree
	}
}

// resolve reduces a fully-delegated tree (one already passed through Eval)
// to a flat set of BoundNames by consulting the registered namers at each
// leaf, applying Union/Weighted/Neg semantics as it collapses the tree.
func resolve(tree NameTree) ([]BoundName, error) {
	switch t := tree.(type) {
	case boundLeaf:
		return t.names, nil
	case Leaf:
		for _, namer := range builtinNamers {
			names, ok, err := namer.Bind(t.Path)
			if !ok {
				continue
			}
			if err != nil {
				return nil, err
			}
			return names, nil
		}
		return nil, &NoBrokersAvailable{Path: t.Path}
	case Union:
		var all []BoundName
		var lastErr error
		for _, c := range t.Children {
			names, err := resolve(c)
			if err != nil {
				lastErr = err
				continue
			}
			all = append(all, names...)
		}
		if len(all) == 0 {
			if lastErr == nil {
				lastErr = fmt.Errorf("yarpcnaming: empty union")
			}
			return nil, lastErr
		}
		return all, nil
	case Weighted:
		names, err := resolve(t.Tree)
		if err != nil {
			return nil, err
		}
		out := make([]BoundName, len(names))
		for i, n := range names {
			out[i] = BoundName{ID: n.ID, Addrs: n.Addrs, Weight: t.Weight}
		}
		return out, nil
	case Neg:
		if _, err := resolve(t.Tree); err == nil {
			return nil, &NoBrokersAvailable{Path: leafPathOf(t.Tree)}
		}
		return nil, fmt.Errorf("yarpcnaming: negated branch also failed to bind")
	default:
		return nil, fmt.Errorf("yarpcnaming: unrecognized name tree node")
	}
}

func leafPathOf(tree NameTree) Path {
	switch t := tree.(type) {
	case boundLeaf:
		return t.path
	case Leaf:
		return t.Path
	case Weighted:
		return leafPathOf(t.Tree)
	case Neg:
		return leafPathOf(t.Tree)
	case Union:
		if len(t.Children) > 0 {
			return leafPathOf(t.Children[0])
		}
	}
	return nil
}

// collapse reduces names to a single BoundName: the name itself if there is
// exactly one, or a synthesized union identity if there is more than one.
func collapse(names []BoundName) BoundName {
	if len(names) == 1 {
		return names[0]
	}
	return newUnionName(names)
}

// Bind resolves path against dtab and returns the reactive result described
// in this package's documentation. Evaluation here is synchronous: the
// returned Activity is already Ok or Failed by the time Bind returns. The
// Activity interface remains general so a future namer whose answer changes
// over time (a DNS namer, a service registry) can publish further
// transitions without any change to callers of Bind.
func Bind(dtab Dtab, path Path) Activity {
	resolved, ok := Eval(dtab, Leaf{Path: path})
	if !ok {
		return NewStaticActivity(Failed(&NoBrokersAvailable{Path: path}))
	}
	names, err := resolve(resolved)
	if err != nil {
		return NewStaticActivity(Failed(err))
	}
	if len(names) == 0 {
		return NewStaticActivity(Failed(&NoBrokersAvailable{Path: path}))
	}
	return NewStaticActivity(Ok([]BoundName{collapse(names)}))
}
