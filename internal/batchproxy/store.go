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

// Store is the bounded buffer of pending Requests for one grouping key. It
// is owned exclusively by a single Worker goroutine (see worker.go) and is
// therefore never synchronized internally — unlike the rate-limited Store
// this package's Manager is modeled on, which fans out across many HTTP
// handler goroutines and needs sync.Map, this Store only ever has one
// caller at a time by construction.
type Store struct {
	pending      []Request
	currentSize  int
	maxBatchSize int
}

// NewStore constructs an empty Store bounded by maxBatchSize data items.
func NewStore(maxBatchSize int) *Store {
	return &Store{maxBatchSize: maxBatchSize}
}

// TryStore appends req if doing so would not push the aggregate data-item
// count past maxBatchSize. The boundary is inclusive: a request that lands
// exactly on maxBatchSize is admitted. On success it returns nil; on
// rejection it returns req unchanged so the caller can decide what to do
// next (flush then force_store, per the Worker's overflow policy).
func (s *Store) TryStore(req Request) *Request {
	if s.currentSize+req.Size() > s.maxBatchSize {
		return &req
	}
	s.pending = append(s.pending, req)
	s.currentSize += req.Size()
	return nil
}

// ForceStore appends req unconditionally, regardless of maxBatchSize. Used
// to guarantee forward progress after a request has just been flushed out
// of the way by an overflow flush.
func (s *Store) ForceStore(req Request) {
	s.pending = append(s.pending, req)
	s.currentSize += req.Size()
}

// IsEmpty reports whether the store currently holds no pending requests.
func (s *Store) IsEmpty() bool {
	return len(s.pending) == 0
}

// Drain atomically removes and returns every pending request along with
// the aggregate data-item count they carried, resetting the Store to
// empty. It is the only way requests leave the Store; a rejected TryStore
// never evicts anything already pending.
func (s *Store) Drain() (requests []Request, size int) {
	requests, size = s.pending, s.currentSize
	s.pending = nil
	s.currentSize = 0
	return requests, size
}
