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

import "strings"

// NameTree is a tree over bindings with operators for union, weighted union,
// negation, and leaf (an unresolved path). Evaluating a NameTree against a
// Dtab reduces it to a set of BoundNames or to failure.
//
// NameTree is a closed sum type: the only implementations are Leaf, Union,
// Weighted, and Neg, enforced by the unexported isNameTree method. eval.go
// adds one more, boundLeaf, as the representation of a Leaf Eval has already
// resolved. Eval's result can contain it (it prints like the Leaf it came
// from), but code outside this package cannot construct one.
type NameTree interface {
	isNameTree()
	String() string
}

// Leaf is an unresolved path awaiting delegation.
type Leaf struct {
	Path Path
}

func (Leaf) isNameTree()     {}
func (l Leaf) String() string { return l.Path.String() }

// Union is the union of its children's bound names. A child that fails to
// bind contributes nothing; Union only fails if every child fails.
type Union struct {
	Children []NameTree
}

func (Union) isNameTree() {}
func (u Union) String() string {
	parts := make([]string, len(u.Children))
	for i, c := range u.Children {
		parts[i] = c.String()
	}
	return strings.Join(parts, " & ")
}

// Weighted annotates a subtree with a relative weight. The weight is carried
// through evaluation onto every BoundName produced by Tree; this package
// does not interpret it, since load distribution belongs to the balancer
// layer above the core.
type Weighted struct {
	Weight float64
	Tree   NameTree
}

func (Weighted) isNameTree() {}
func (w Weighted) String() string {
	return w.Tree.String()
}

// Neg deliberately blackholes a subtree: if Tree would otherwise bind, Neg
// resolves to failure instead. If Tree itself fails, Neg fails too, since
// there is nothing to negate.
type Neg struct {
	Tree NameTree
}

func (Neg) isNameTree() {}
func (n Neg) String() string { return "!" + n.Tree.String() }
