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

import (
	"context"
	"errors"
	"time"

	"github.com/btwotwo/batch-proxy/internal/metrics"
	"go.uber.org/zap"
)

// batchedClient is one caller's share of an assembled Batch: how many of
// the batch's data items are theirs, where to send their slice of the
// response, and the context/id needed to detect and log an abandoned
// delivery.
type batchedClient struct {
	size     int
	reply    ReplyChannel
	ctx      context.Context
	callerID string
}

// batch is a single assembled unit of work for one Dispatch call: every
// data item in order, plus the per-caller bookkeeping needed to slice the
// backend's response back apart afterward.
type batch struct {
	key     GroupingKey
	data    []string
	clients []batchedClient
}

// assembleBatch concatenates every drained request's data, in order, and
// records each caller's slice size so the response can be redistributed
// after the backend call returns.
func assembleBatch(key GroupingKey, requests []Request, size int) batch {
	data := make([]string, 0, size)
	clients := make([]batchedClient, 0, len(requests))
	for _, req := range requests {
		data = append(data, req.Data...)
		clients = append(clients, batchedClient{
			size:     req.Size(),
			reply:    req.Reply,
			ctx:      req.Ctx,
			callerID: req.CallerID,
		})
	}
	return batch{key: key, data: data, clients: clients}
}

// Dispatcher turns one assembled batch into a single backend call and
// distributes the response back to each caller's reply channel, in the
// same order the batch was assembled.
type Dispatcher struct {
	backend BackendClient
	logger  *zap.Logger
}

// NewDispatcher constructs a Dispatcher that calls out to backend.
func NewDispatcher(backend BackendClient, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{backend: backend, logger: logger}
}

// Dispatch assembles requests into one backend call and fans the result
// back out. The owning Worker runs it on its own goroutine for every flush
// except the final flush on shutdown, which calls it synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, key GroupingKey, requests []Request, size int) {
	b := assembleBatch(key, requests, size)

	clientIDs := make([]string, 0, len(b.clients))
	for _, c := range b.clients {
		clientIDs = append(clientIDs, c.callerID)
	}
	d.logger.Info("dispatching batch",
		zap.Int("requests", len(requests)),
		zap.Int("data_items", size),
		zap.Strings("caller_ids", clientIDs),
	)

	start := time.Now()
	rows, err := d.backend.Embed(ctx, key, b.data)
	metrics.ObserveBackendCall(time.Since(start))

	if err != nil {
		d.logFailure(err)
		metrics.BackendCallError(errorKind(err))
		for _, c := range b.clients {
			d.send(c, Result{Err: errBackendCallFailed})
		}
		return
	}

	if len(rows) != len(b.data) {
		d.logger.Error("embedding API returned an unexpected number of rows",
			zap.Int("want", len(b.data)), zap.Int("got", len(rows)))
		metrics.BackendCallError("shape_mismatch")
		for _, c := range b.clients {
			d.send(c, Result{Err: ErrResponseShapeMismatch})
		}
		return
	}

	metrics.ObserveBatch(len(requests), size)

	offset := 0
	for _, c := range b.clients {
		d.send(c, Result{Embeddings: rows[offset : offset+c.size]})
		offset += c.size
	}
}

// send delivers res to c's reply channel and logs+counts a dispatch as
// abandoned (the consumer's own context was already done) instead of
// silently losing it, matching what the teacher's persister does when a
// commit outlives its caller.
func (d *Dispatcher) send(c batchedClient, res Result) {
	if c.reply.Send(c.ctx, res) {
		return
	}
	d.logger.Warn("reply channel abandoned, dropping result",
		zap.String("caller_id", c.callerID), zap.String("kind", dispatchAbandonedKind))
	metrics.ReplyAbandoned()
}

// logFailure logs a failed backend call, attaching the raw response body
// when the failure was a deserialize error so an operator can see the
// actual offending payload rather than just the generic error string.
func (d *Dispatcher) logFailure(err error) {
	var deserializeErr *DeserializeError
	if errors.As(err, &deserializeErr) {
		d.logger.Error("embedding API call failed",
			zap.Error(err), zap.String("raw_body", deserializeErr.Raw))
		return
	}
	d.logger.Error("embedding API call failed", zap.Error(err))
}

func errorKind(err error) string {
	switch err.(type) {
	case *TransportError:
		return "transport"
	case *DeserializeError:
		return "deserialize"
	default:
		return "other"
	}
}

// dispatchAbandonedKind tags the log line when a result could not be
// delivered because the caller's own context ended first (DispatchAbandoned).
const dispatchAbandonedKind = "dispatch_abandoned"
