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

package yarpcbind

import (
	"fmt"

	"go.uber.org/yarpcbind/yarpcerrors"
)

// helpURL is included on EndpointMarkedDown so an operator staring at a log
// line has somewhere to go; it is not validated or dereferenced by this
// package.
const helpURL = "https://github.com/yarpc/yarpc-go/wiki/endpoint-marked-down"

// EndpointMarkedDown is returned by a FailFastFactory's Acquire while the
// wrapped factory is in the Retrying state, without the wrapped factory
// ever being invoked.
type EndpointMarkedDown struct {
	// Endpoint identifies which downstream this refers to, for logging. It
	// appears in Error()'s message; yarpcerrors.FromError(err).Code(), not
	// the message, is the stable identity.
	Endpoint string
}

func (e *EndpointMarkedDown) Error() string {
	return fmt.Sprintf("endpoint %q is marked down, see %s", e.Endpoint, helpURL)
}

// YARPCError gives EndpointMarkedDown a stable Code identity.
func (e *EndpointMarkedDown) YARPCError() *yarpcerrors.Status {
	return yarpcerrors.Newf(yarpcerrors.CodeUnavailable, "%s", e.Error())
}

// ServiceClosed is returned by Acquire on a servicecache.Cache or a
// dynname.Factory that has been closed, including to callers still queued on
// a dynname.Factory when it closes.
type ServiceClosed struct {
	// Name identifies the closed factory, for logging.
	Name string
}

func (e *ServiceClosed) Error() string {
	if e.Name == "" {
		return "service closed"
	}
	return fmt.Sprintf("service %q closed", e.Name)
}

// YARPCError gives ServiceClosed a stable Code identity.
func (e *ServiceClosed) YARPCError() *yarpcerrors.Status {
	return yarpcerrors.Newf(yarpcerrors.CodeFailedPrecondition, "%s", e.Error())
}

// CancelledConnection is returned by DynNameFactory's Acquire when a caller
// cancels its context while its acquisition is queued, before the name
// resolves. FailFastFactory does not produce it: a forwarded Acquire returns
// whatever the wrapped factory returns.
type CancelledConnection struct {
	Cause error
}

func (e *CancelledConnection) Error() string {
	if e.Cause == nil {
		return "connection cancelled"
	}
	return fmt.Sprintf("connection cancelled: %s", e.Cause)
}

// Unwrap exposes Cause to errors.Is/errors.As.
func (e *CancelledConnection) Unwrap() error { return e.Cause }

// YARPCError gives CancelledConnection a stable Code identity.
func (e *CancelledConnection) YARPCError() *yarpcerrors.Status {
	return yarpcerrors.Newf(yarpcerrors.CodeCancelled, "%s", e.Error())
}

// NamingException wraps a reactive name's Failed(err) while it sits in a
// DynNameFactory's pending queue. It is transparent: DynNameFactory.Acquire
// unwraps it before returning to the caller, so it must never be surfaced
// past that boundary; its only purpose is to let the queue-draining code
// distinguish "the name itself failed" from any other error shape.
type NamingException struct {
	Cause error
}

func (e *NamingException) Error() string {
	return fmt.Sprintf("naming exception: %s", e.Cause)
}

// Unwrap exposes Cause to errors.Is/errors.As.
func (e *NamingException) Unwrap() error { return e.Cause }

// YARPCError inherits the wrapped naming error's Code, since NamingException
// is a transparent wrapper, not a new error kind.
func (e *NamingException) YARPCError() *yarpcerrors.Status {
	return yarpcerrors.FromError(e.Cause)
}
