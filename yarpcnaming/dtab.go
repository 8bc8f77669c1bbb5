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
	"context"
	"strings"

	"go.uber.org/atomic"
)

// Dentry is a single delegation rule: paths matching Prefix are rewritten to
// Tree, with the unmatched suffix concatenated onto every leaf reachable
// from Tree.
type Dentry struct {
	Prefix Path
	Tree   NameTree
}

// Dtab is an ordered list of delegation rules. Lookup is a pure function of
// the table and the path: entries are tried from last to first and the last
// whose Prefix matches wins, so later entries take precedence.
type Dtab []Dentry

// String renders the table in the semicolon-joined "prefix=>tree" form used
// throughout this package's documentation and tests.
func (d Dtab) String() string {
	parts := make([]string, len(d))
	for i, e := range d {
		parts[i] = e.Prefix.String() + "=>" + e.Tree.String()
	}
	return strings.Join(parts, ";")
}

// Concat returns the table formed by appending local after d. Since later
// entries take precedence, entries in local are tried before entries in d.
func (d Dtab) Concat(local Dtab) Dtab {
	out := make(Dtab, 0, len(d)+len(local))
	out = append(out, d...)
	out = append(out, local...)
	return out
}

// IsEmpty reports whether the table has no entries.
func (d Dtab) IsEmpty() bool { return len(d) == 0 }

var baseDtab atomic.Value // holds Dtab

func init() {
	baseDtab.Store(Dtab(nil))
}

// SetBaseDtab replaces the process-wide base delegation table.
func SetBaseDtab(d Dtab) {
	baseDtab.Store(d)
}

// BaseDtab returns a snapshot of the process-wide base delegation table.
func BaseDtab() Dtab {
	v := baseDtab.Load()
	if v == nil {
		return nil
	}
	return v.(Dtab)
}

type localDtabKey struct{}

// WithLocalDtab returns a context carrying a request-scoped delegation table
// override. The core only ever reads a snapshot of this value; it does not
// mutate it.
func WithLocalDtab(ctx context.Context, d Dtab) context.Context {
	return context.WithValue(ctx, localDtabKey{}, d)
}

// LocalDtabFromContext returns the request-scoped delegation table override
// carried by ctx, or an empty Dtab if none was set.
func LocalDtabFromContext(ctx context.Context) Dtab {
	d, _ := ctx.Value(localDtabKey{}).(Dtab)
	return d
}

// EffectiveDtab returns BaseDtab() concatenated with the local override
// carried by ctx.
func EffectiveDtab(ctx context.Context) Dtab {
	return BaseDtab().Concat(LocalDtabFromContext(ctx))
}
