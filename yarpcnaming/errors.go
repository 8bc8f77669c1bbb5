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

	"go.uber.org/yarpcbind/yarpcerrors"
)

// NoBrokersAvailable is returned when a Path fails to resolve to any
// BoundName under a Dtab: either no Dentry matched a leaf, or every branch
// of the resolved NameTree failed to bind.
//
// LocalDtab is populated by the binding layer (yarpcbind/binding) when the
// caller supplied a non-empty request-scoped override, so operators can see
// exactly what routing decision produced the failure.
type NoBrokersAvailable struct {
	Path      Path
	LocalDtab Dtab
}

func (e *NoBrokersAvailable) Error() string {
	if len(e.LocalDtab) == 0 {
		return fmt.Sprintf("no brokers available for %s", e.Path)
	}
	return fmt.Sprintf("no brokers available for %s (local dtab: %s)", e.Path, e.LocalDtab)
}

// YARPCError makes NoBrokersAvailable's Code a stable, comparable identity
// via yarpcerrors.FromError(err).Code(), independent of Error()'s message.
func (e *NoBrokersAvailable) YARPCError() *yarpcerrors.Status {
	return yarpcerrors.Newf(yarpcerrors.CodeUnavailable, "%s", e.Error())
}

// WithLocalDtab returns a copy of e annotated with the given local table.
func (e *NoBrokersAvailable) WithLocalDtab(d Dtab) *NoBrokersAvailable {
	return &NoBrokersAvailable{Path: e.Path, LocalDtab: d}
}
