// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package batchproxy

import "errors"

// ErrRequestAbandoned is returned by Recv when the ReplyChannel was closed
// without a value: by Abandon, or by a Send whose caller context was
// already done.
var ErrRequestAbandoned = errors.New("request abandoned")

// ErrWorkerUnavailable is returned to a caller whose request could not be
// delivered to its worker's inbox (the inbox is closed or full). No backend
// call is made for this caller.
var ErrWorkerUnavailable = errors.New("could not process request, please try again")

// ErrResponseShapeMismatch is returned when the backend's response array
// does not have exactly one row per data item in the batch.
var ErrResponseShapeMismatch = errors.New("embedding API returned an unexpected number of results")

// errBackendCallFailed is the single, generic message every caller in a
// batch receives when the backend call itself failed. It deliberately
// drops the underlying cause from the caller-visible message; the cause is
// still logged by the Dispatcher.
var errBackendCallFailed = errors.New("API call failed, please try again")

// TransportError wraps a failure to even complete the HTTP round trip to
// the backend (connection refused, timeout, DNS failure, non-2xx status).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "embedding API call failed: please try again" }
func (e *TransportError) Unwrap() error { return e.Err }

// DeserializeError wraps a failure to parse the backend's response body as
// the expected array-of-arrays shape. Raw carries the response body for
// diagnostics (logged, never returned to callers).
type DeserializeError struct {
	Err error
	Raw string
}

func (e *DeserializeError) Error() string {
	return "embedding API returned a response that could not be parsed"
}
func (e *DeserializeError) Unwrap() error { return e.Err }
