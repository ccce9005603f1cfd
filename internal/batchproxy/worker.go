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
	"sync"
	"time"

	"go.uber.org/zap"
)

// workerInboxCapacity bounds the number of requests a Worker can have
// queued before PutRequest starts rejecting new ones outright.
const workerInboxCapacity = 2048

// Worker is the per-key actor: it owns one Request Store exclusively,
// flushes it when a new request does not fit or when MaxWaitingTime
// elapses since the last flush, and stops, flushing whatever remains, when cancelled. Exactly one
// goroutine ever touches a Worker's Store — the one running its loop.
type Worker struct {
	id             string
	key            GroupingKey
	store          *Store
	dispatcher     *Dispatcher
	maxWaitingTime time.Duration

	inbox    chan Request
	cancel   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	inflight sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	logger *zap.Logger
}

// NewWorker constructs a Worker for one grouping key. It does not start
// running until Start is called.
func NewWorker(id string, key GroupingKey, maxBatchSize int, maxWaitingTime time.Duration, dispatcher *Dispatcher, logger *zap.Logger) *Worker {
	return &Worker{
		id:             id,
		key:            key,
		store:          NewStore(maxBatchSize),
		dispatcher:     dispatcher,
		maxWaitingTime: maxWaitingTime,
		inbox:          make(chan Request, workerInboxCapacity),
		cancel:         make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger,
	}
}

// Start launches the Worker's loop on its own goroutine.
func (w *Worker) Start() {
	go w.run()
}

// PutRequest hands req to the worker. It never blocks: if the inbox is
// full, or the worker has already started shutting down, the request is
// rejected immediately and the caller is told so via its reply channel,
// without ever reaching the backend.
//
// Holding the read lock across the inbox send closes the race between a
// caller enqueueing a request and the run loop's cancel case deciding the
// inbox is safe to drain: closed is only ever set to true under the write
// lock, which cannot be acquired until every in-flight PutRequest that saw
// closed == false has finished its send.
func (w *Worker) PutRequest(req Request) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Error("worker shutting down, rejecting request",
			zap.String("worker_id", w.id), zap.String("caller_id", req.CallerID))
		req.Reply.Send(req.Ctx, Result{Err: ErrWorkerUnavailable})
		return
	}
	select {
	case w.inbox <- req:
	default:
		w.logger.Error("worker inbox full, rejecting request",
			zap.String("worker_id", w.id), zap.String("caller_id", req.CallerID))
		req.Reply.Send(req.Ctx, Result{Err: ErrWorkerUnavailable})
	}
}

// Shutdown signals the Worker to stop: it performs one final, synchronous
// flush of whatever is pending and exits its loop. Shutdown blocks until
// that has happened or ctx is done, whichever comes first. Safe to call
// more than once.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.cancel) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run() {
	defer close(w.done)

	timer := time.NewTimer(w.maxWaitingTime)
	defer timer.Stop()

	for {
		select {
		case req := <-w.inbox:
			w.handleNewRequest(req, timer)

		case <-timer.C:
			w.flushAsync()
			timer.Reset(w.maxWaitingTime)

		case <-w.cancel:
			w.mu.Lock()
			w.closed = true
			w.mu.Unlock()
			w.drainInboxIntoStore()
			w.flushFinal()
			w.inflight.Wait()
			w.logger.Info("worker stopped", zap.String("worker_id", w.id))
			return
		}
	}
}

// drainInboxIntoStore force-stores every request still sitting in the
// inbox so flushFinal answers it along with whatever was already pending,
// instead of leaving it to be silently discarded when the loop returns.
// Safe only once cancel has fired: by then the Manager has stopped
// routing new requests to this Worker, so the inbox can only shrink.
func (w *Worker) drainInboxIntoStore() {
	for {
		select {
		case req := <-w.inbox:
			w.store.ForceStore(req)
		default:
			return
		}
	}
}

// handleNewRequest stores req, or — if it would overflow the current
// batch — flushes what is pending first and then force-stores req into
// the now-empty batch, guaranteeing every request is eventually part of
// some batch.
func (w *Worker) handleNewRequest(req Request, timer *time.Timer) {
	if leftover := w.store.TryStore(req); leftover != nil {
		w.logger.Info("max batch size reached, flushing before accepting new request",
			zap.String("worker_id", w.id), zap.String("caller_id", req.CallerID))
		w.flushAsync()
		resetTimer(timer, w.maxWaitingTime)
		w.store.ForceStore(*leftover)
	}
}

// flushAsync drains the Store and dispatches it on its own goroutine so
// the Worker's loop is never blocked waiting on the backend call. The
// goroutine is tracked in w.inflight so a shutdown can wait for it to
// finish instead of abandoning it mid-flight when the process exits.
func (w *Worker) flushAsync() {
	if w.store.IsEmpty() {
		return
	}
	requests, size := w.store.Drain()
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		w.dispatcher.Dispatch(context.Background(), w.key, requests, size)
	}()
}

// flushFinal drains and dispatches synchronously. Called only while
// shutting down, where nothing else will arrive on the inbox and the
// caller of Shutdown needs the dispatch to have completed before the
// Worker is considered stopped.
func (w *Worker) flushFinal() {
	if w.store.IsEmpty() {
		return
	}
	requests, size := w.store.Drain()
	w.dispatcher.Dispatch(context.Background(), w.key, requests, size)
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
