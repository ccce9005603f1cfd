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

	"github.com/btwotwo/batch-proxy/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// managerInboxCapacity bounds how many not-yet-routed requests the Manager
// will hold before NewRequest starts rejecting outright.
const managerInboxCapacity = 4096

type managerRequest struct {
	key GroupingKey
	req Request
}

// Manager routes every incoming Request to the Worker for its grouping
// key, lazily spawning a new Worker the first time a key is seen. Like a
// Worker's Store, the key->Worker map is never locked: only the Manager's
// own goroutine ever reads or writes it.
type Manager struct {
	workers        map[GroupingKey]*Worker
	backend        BackendClient
	maxBatchSize   int
	maxWaitingTime time.Duration
	logger         *zap.Logger

	inbox  chan managerRequest
	cancel chan struct{}
	done   chan struct{}

	stopOnce    sync.Once
	shutdownCtx context.Context

	mu     sync.RWMutex
	closed bool
}

// NewManager constructs a Manager. It does not start routing until Start
// is called.
func NewManager(backend BackendClient, maxBatchSize int, maxWaitingTime time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		workers:        make(map[GroupingKey]*Worker),
		backend:        backend,
		maxBatchSize:   maxBatchSize,
		maxWaitingTime: maxWaitingTime,
		logger:         logger,
		inbox:          make(chan managerRequest, managerInboxCapacity),
		cancel:         make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start launches the Manager's routing loop on its own goroutine.
func (m *Manager) Start() {
	go m.run()
}

// NewRequest routes req to the Worker for key, lazily creating one if this
// is the first request seen for that key. It never blocks: if the
// Manager's own inbox is full, or the Manager has already started
// shutting down, req fails immediately via its reply channel without ever
// reaching a Worker.
//
// Holding the read lock across the inbox send closes the race between a
// caller enqueueing a request and run's cancel case deciding the inbox is
// safe to drain: closed is only ever set to true under the write lock,
// which cannot be acquired until every in-flight NewRequest that saw
// closed == false has finished its send.
func (m *Manager) NewRequest(key GroupingKey, req Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.logger.Error("manager shutting down, rejecting request", zap.String("caller_id", req.CallerID))
		req.Reply.Send(req.Ctx, Result{Err: ErrWorkerUnavailable})
		return
	}
	select {
	case m.inbox <- managerRequest{key: key, req: req}:
	default:
		m.logger.Error("manager inbox full, rejecting request", zap.String("caller_id", req.CallerID))
		req.Reply.Send(req.Ctx, Result{Err: ErrWorkerUnavailable})
	}
}

// Shutdown stops routing and fans cancellation out to every Worker ever
// created, waiting (bounded by ctx) for all of them to finish their final
// flush. Safe to call more than once; later callers observe the same
// outcome as the first.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() {
		m.shutdownCtx = ctx
		close(m.cancel)
	})
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) run() {
	defer close(m.done)
	for {
		select {
		case msg := <-m.inbox:
			m.routeToWorker(msg.key, msg.req)
		case <-m.cancel:
			m.mu.Lock()
			m.closed = true
			m.mu.Unlock()
			m.drainInbox()
			m.shutdownWorkers(m.shutdownCtx)
			return
		}
	}
}

// drainInbox routes every request still sitting in the Manager's own
// inbox to its Worker (creating one if needed) before shutdownWorkers
// cancels every Worker in turn, instead of leaving those requests
// silently unanswered when the loop returns. Safe only once cancel has
// fired: this goroutine is the only one that ever reads m.inbox, and it
// never reaches this point except on its way out.
func (m *Manager) drainInbox() {
	for {
		select {
		case msg := <-m.inbox:
			m.routeToWorker(msg.key, msg.req)
		default:
			return
		}
	}
}

func (m *Manager) routeToWorker(key GroupingKey, req Request) {
	w, ok := m.workers[key]
	if !ok {
		id := uuid.NewString()
		workerLogger := m.logger.With(zap.String("worker_id", id))
		m.logger.Info("starting new worker", zap.String("worker_id", id))
		w = NewWorker(id, key, m.maxBatchSize, m.maxWaitingTime, NewDispatcher(m.backend, workerLogger), workerLogger)
		w.Start()
		m.workers[key] = w
		metrics.SetWorkersLive(len(m.workers))
	}
	w.PutRequest(req)
}

func (m *Manager) shutdownWorkers(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range m.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			if err := w.Shutdown(ctx); err != nil {
				m.logger.Warn("worker did not stop before shutdown deadline", zap.Error(err))
			}
		}(w)
	}
	wg.Wait()
}
