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
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestWorker(maxBatchSize int, maxWaitingTime time.Duration, backend BackendClient) *Worker {
	logger := zap.NewNop()
	w := NewWorker("test-worker", GroupingKey{}, maxBatchSize, maxWaitingTime, NewDispatcher(backend, logger), logger)
	w.Start()
	return w
}

// TestWorker_FlushesOnTimerWhenBelowMax ensures a single request that
// never reaches max batch size is still flushed once MaxWaitingTime
// elapses.
func TestWorker_FlushesOnTimerWhenBelowMax(t *testing.T) {
	backend := &fakeBackend{rows: [][]float64{{1}}}
	w := newTestWorker(100, 20*time.Millisecond, backend)
	defer w.Shutdown(context.Background())

	reply := NewReplyChannel()
	w.PutRequest(Request{CallerID: "a", Data: []string{"x"}, Reply: reply})

	res := reply.Recv()
	if res.Err != nil {
		t.Fatalf("expected successful flush, got error %v", res.Err)
	}
}

// TestWorker_FlushesImmediatelyOnOverflow ensures a request that would
// overflow the current batch triggers an immediate flush of what is
// pending, then starts a fresh batch containing the new request.
func TestWorker_FlushesImmediatelyOnOverflow(t *testing.T) {
	backend := &fakeBackend{rows: [][]float64{{1}}}
	w := newTestWorker(1, time.Hour, backend)
	defer w.Shutdown(context.Background())

	firstReply := NewReplyChannel()
	w.PutRequest(Request{CallerID: "a", Data: []string{"x"}, Reply: firstReply})

	// Give the worker a moment to store the first request before sending
	// the one that forces an overflow flush.
	time.Sleep(10 * time.Millisecond)

	secondReply := NewReplyChannel()
	w.PutRequest(Request{CallerID: "b", Data: []string{"y"}, Reply: secondReply})

	res := firstReply.Recv()
	if res.Err != nil {
		t.Fatalf("expected the overflowed request to be flushed successfully, got %v", res.Err)
	}
}

// TestWorker_PutRequest_RejectsWhenInboxFull ensures PutRequest never
// blocks: once the inbox is saturated, further requests fail immediately
// with ErrWorkerUnavailable.
func TestWorker_PutRequest_RejectsWhenInboxFull(t *testing.T) {
	backend := &fakeBackend{rows: [][]float64{{1}}}
	logger := zap.NewNop()
	w := NewWorker("test-worker", GroupingKey{}, 100, time.Hour, NewDispatcher(backend, logger), logger)
	// Deliberately do not Start the worker so its inbox never drains.

	for i := 0; i < workerInboxCapacity; i++ {
		w.PutRequest(Request{CallerID: "filler", Data: []string{"x"}, Reply: NewReplyChannel()})
	}

	reply := NewReplyChannel()
	w.PutRequest(Request{CallerID: "overflow", Data: []string{"x"}, Reply: reply})

	res := reply.Recv()
	if !errors.Is(res.Err, ErrWorkerUnavailable) {
		t.Fatalf("expected ErrWorkerUnavailable, got %v", res.Err)
	}
}

// TestWorker_Shutdown_FlushesPendingRequests ensures a pending, unflushed
// request is still dispatched and answered during a graceful Shutdown.
func TestWorker_Shutdown_FlushesPendingRequests(t *testing.T) {
	backend := &fakeBackend{rows: [][]float64{{1}}}
	w := newTestWorker(100, time.Hour, backend)

	reply := NewReplyChannel()
	w.PutRequest(Request{CallerID: "a", Data: []string{"x"}, Reply: reply})
	time.Sleep(10 * time.Millisecond)

	if err := w.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	res := reply.Recv()
	if res.Err != nil {
		t.Fatalf("expected the pending request to be flushed on shutdown, got %v", res.Err)
	}
}

// TestWorker_Shutdown_AnswersRequestsStillQueuedInInbox ensures requests
// accepted via PutRequest but not yet moved into the Store when cancel
// fires are still drained, flushed, and answered — none of them are left
// to block Recv forever.
func TestWorker_Shutdown_AnswersRequestsStillQueuedInInbox(t *testing.T) {
	const n = 50
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{float64(i)}
	}
	backend := &fakeBackend{rows: rows}
	w := newTestWorker(n, time.Hour, backend)

	replies := make([]ReplyChannel, n)
	for i := 0; i < n; i++ {
		replies[i] = NewReplyChannel()
		w.PutRequest(Request{CallerID: "c", Data: []string{"x"}, Reply: replies[i]})
	}
	// No sleep: Shutdown races the worker's loop, so most (or all) of
	// these requests are still sitting in the inbox, not the Store, when
	// cancel fires.
	if err := w.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	for i, r := range replies {
		if res := r.Recv(); res.Err != nil {
			t.Fatalf("request %d was not answered on shutdown: %v", i, res.Err)
		}
	}
}

// TestWorker_PutRequest_RejectsAfterShutdown ensures a request submitted
// after Shutdown has already closed the worker's cancel channel is
// rejected immediately instead of being accepted into an inbox nothing
// will ever drain again.
func TestWorker_PutRequest_RejectsAfterShutdown(t *testing.T) {
	backend := &fakeBackend{rows: [][]float64{{1}}}
	w := newTestWorker(100, time.Hour, backend)

	if err := w.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	reply := NewReplyChannel()
	w.PutRequest(Request{CallerID: "late", Data: []string{"x"}, Reply: reply})

	res := reply.Recv()
	if !errors.Is(res.Err, ErrWorkerUnavailable) {
		t.Fatalf("expected ErrWorkerUnavailable for a request submitted after shutdown, got %v", res.Err)
	}
}

// TestWorker_Shutdown_WaitsForInFlightDispatch ensures Shutdown does not
// report done while a dispatch spawned by an earlier flushAsync is still
// running against the backend.
func TestWorker_Shutdown_WaitsForInFlightDispatch(t *testing.T) {
	backend := &fakeBackend{rows: [][]float64{{1}}, delay: 50 * time.Millisecond}
	w := newTestWorker(1, time.Hour, backend)

	reply := NewReplyChannel()
	w.PutRequest(Request{CallerID: "a", Data: []string{"x"}, Reply: reply})
	// Give the worker time to store and flush the request via flushAsync
	// (triggered by overflow on the next request) before shutdown fires.
	time.Sleep(10 * time.Millisecond)
	second := NewReplyChannel()
	w.PutRequest(Request{CallerID: "b", Data: []string{"y"}, Reply: second})
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	if err := w.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < backend.delay {
		t.Fatalf("expected Shutdown to wait for the in-flight dispatch (delay %v), returned after %v", backend.delay, elapsed)
	}

	if res := reply.Recv(); res.Err != nil {
		t.Fatalf("expected the overflowed request to be flushed successfully, got %v", res.Err)
	}
}
