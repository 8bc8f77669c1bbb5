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

import (
	"fmt"
	"sort"
	"strings"
)

// BoundName is a fully resolved destination: an opaque identity used as a
// cache key and a tracing label, plus a set of network addresses. Equality
// and hashing are by ID, not by Addrs or Weight.
type BoundName struct {
	ID     interface{}
	Addrs  []string
	Weight float64
}

// Key returns the value used to key the name cache. BoundName.ID must be
// comparable (a string, or a struct of comparable fields) so it can be
// used directly as a Go map key.
func (n BoundName) Key() interface{} { return n.ID }

// unionID is the identity synthesized for a NameTree that resolves to more
// than one BoundName (see Eval's "Some(S), |S|>1" case). Two unionIDs are
// equal, and hash equal as map keys, iff their member IDs are equal sets.
type unionID struct {
	members string // sorted, joined rendering of member IDs; see RenderID
}

func newUnionName(members []BoundName) BoundName {
	ids := make([]string, len(members))
	addrs := make([]string, 0)
	for i, m := range members {
		ids[i] = RenderID(m.ID)
		addrs = append(addrs, m.Addrs...)
	}
	sort.Strings(ids)
	return BoundName{
		ID:    unionID{members: strings.Join(ids, ",")},
		Addrs: addrs,
	}
}

// RenderID renders a BoundName identity for tracing (namer.name) or for
// synthesizing a union identity: string ids verbatim, Path ids in canonical
// slash form, and any other id via a generic structural printer (%+v).
func RenderID(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case Path:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%+v", v)
	}
}
