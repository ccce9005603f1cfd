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
)

// Result is what a caller eventually receives back for one Request.
type Result struct {
	Embeddings [][]float64
	Err        error
}

// ReplyChannel is a single-producer, single-consumer, one-shot delivery
// primitive: exactly one of Send or Abandon is ever called by the producer
// side, and Recv is called exactly once by the consumer side. The zero
// value is not usable; construct with NewReplyChannel.
//
// ReplyChannel is a small value type wrapping a pointer to shared state, so
// copies of it (e.g. passed down through Request) all observe the same
// one-shot delivery.
type ReplyChannel struct {
	state *replyState
}

type replyState struct {
	ch   chan Result
	once sync.Once
}

// NewReplyChannel constructs a fresh one-shot reply channel.
func NewReplyChannel() ReplyChannel {
	return ReplyChannel{state: &replyState{ch: make(chan Result, 1)}}
}

// Send delivers res to the waiting caller, unless ctx is already done —
// meaning the caller went away before a result was ready — in which case
// res is dropped and Send reports false so the producer can log the
// abandonment. Safe to call from any goroutine; only the first call has
// any effect, matching the "exactly one send" invariant even if a caller
// mistakenly calls it twice. A nil ctx is treated as never done.
func (r ReplyChannel) Send(ctx context.Context, res Result) (delivered bool) {
	r.state.once.Do(func() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				close(r.state.ch)
				return
			default:
			}
		}
		r.state.ch <- res
		close(r.state.ch)
		delivered = true
	})
	return delivered
}

// Abandon drops the sender side without ever answering. Recv observes a
// closed channel with no value and synthesizes ErrRequestAbandoned.
func (r ReplyChannel) Abandon() {
	r.state.once.Do(func() {
		close(r.state.ch)
	})
}

// Recv blocks until Send or Abandon is called on the same ReplyChannel.
func (r ReplyChannel) Recv() Result {
	res, ok := <-r.state.ch
	if !ok {
		return Result{Err: ErrRequestAbandoned}
	}
	return res
}
