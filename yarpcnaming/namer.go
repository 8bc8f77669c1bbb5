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
	"strconv"
)

// Namer turns a fully-delegated leaf Path into a set of BoundNames, or
// reports that it does not recognize the path. Registered namers are
// consulted, in registration order, for a leaf that matches no Dtab entry.
type Namer interface {
	// Bind attempts to resolve path. ok is false if this namer does not
	// claim the path at all, as opposed to claiming it and failing.
	Bind(path Path) (names []BoundName, ok bool, err error)
}

// NamerFunc adapts a plain function to the Namer interface.
type NamerFunc func(Path) ([]BoundName, bool, error)

// Bind implements Namer.
func (f NamerFunc) Bind(path Path) ([]BoundName, bool, error) { return f(path) }

var builtinNamers []Namer

func init() {
	RegisterNamer(NamerFunc(bindInet))
	RegisterNamer(NamerFunc(bindNil))
}

// RegisterNamer adds n to the table Eval consults for a leaf that matches no
// Dtab entry. Namers are tried in registration order;
// the first to return ok=true wins.
func RegisterNamer(n Namer) {
	builtinNamers = append(builtinNamers, n)
}

// bindInet implements /$/inet/<host>/<port>, binding directly to a single
// network address. Host may be empty (e.g. "/$/inet/0/1010" binds to
// ":1010" on the local interface), matching this document's own examples.
func bindInet(path Path) ([]BoundName, bool, error) {
	if len(path) < 3 || path[0] != "$" || path[1] != "inet" {
		return nil, false, nil
	}
	host := path[2]
	if host == "0" {
		host = ""
	}
	port := ""
	if len(path) >= 4 {
		port = path[3]
	}
	if _, err := strconv.Atoi(port); port != "" && err != nil {
		return nil, true, fmt.Errorf("yarpcnaming: invalid port in %s: %w", path, err)
	}
	addr := host + ":" + port
	id := "inet!" + addr
	return []BoundName{{ID: id, Addrs: []string{addr}, Weight: 1}}, true, nil
}

// bindNil implements /$/nil, which always fails to bind. It exists to let a
// Dtab explicitly blackhole a branch (see Neg for the other blackhole idiom).
func bindNil(path Path) ([]BoundName, bool, error) {
	if len(path) < 2 || path[0] != "$" || path[1] != "nil" {
		return nil, false, nil
	}
	return nil, true, fmt.Errorf("yarpcnaming: /$/nil")
}
