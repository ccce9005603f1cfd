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

import "testing"

func newTestRequest(n int) Request {
	data := make([]string, n)
	for i := range data {
		data[i] = "x"
	}
	return Request{CallerID: "caller", Data: data, Reply: NewReplyChannel()}
}

// TestStore_TryStore_AdmitsUpToMax ensures requests are admitted as long as
// they do not push the aggregate size past maxBatchSize.
func TestStore_TryStore_AdmitsUpToMax(t *testing.T) {
	s := NewStore(10)
	if leftover := s.TryStore(newTestRequest(6)); leftover != nil {
		t.Fatalf("expected request to be admitted, got leftover")
	}
	if leftover := s.TryStore(newTestRequest(4)); leftover != nil {
		t.Fatalf("expected request landing exactly on max to be admitted, got leftover")
	}
	if s.currentSize != 10 {
		t.Fatalf("expected current size 10, got %d", s.currentSize)
	}
}

// TestStore_TryStore_RejectsWhenOverMax ensures a request that would push
// the aggregate size strictly past maxBatchSize is rejected and handed
// back unchanged.
func TestStore_TryStore_RejectsWhenOverMax(t *testing.T) {
	s := NewStore(10)
	if leftover := s.TryStore(newTestRequest(10)); leftover != nil {
		t.Fatalf("expected first request to be admitted")
	}
	req := newTestRequest(1)
	leftover := s.TryStore(req)
	if leftover == nil {
		t.Fatalf("expected rejection when over max")
	}
	if len(leftover.Data) != 1 {
		t.Fatalf("expected the rejected request to be returned unchanged")
	}
	if s.currentSize != 10 {
		t.Fatalf("expected current size to stay at 10 after rejection, got %d", s.currentSize)
	}
}

// TestStore_ForceStore_IgnoresMax ensures ForceStore always admits,
// regardless of maxBatchSize.
func TestStore_ForceStore_IgnoresMax(t *testing.T) {
	s := NewStore(1)
	s.ForceStore(newTestRequest(5))
	if s.currentSize != 5 {
		t.Fatalf("expected current size 5, got %d", s.currentSize)
	}
	if s.IsEmpty() {
		t.Fatalf("expected store to be non-empty after ForceStore")
	}
}

// TestStore_Drain_ResetsToEmpty ensures Drain returns everything pending
// and leaves the Store empty.
func TestStore_Drain_ResetsToEmpty(t *testing.T) {
	s := NewStore(100)
	s.ForceStore(newTestRequest(3))
	s.ForceStore(newTestRequest(2))

	requests, size := s.Drain()
	if size != 5 {
		t.Fatalf("expected drained size 5, got %d", size)
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 drained requests, got %d", len(requests))
	}
	if !s.IsEmpty() {
		t.Fatalf("expected store to be empty after Drain")
	}
}

// TestStore_IsEmpty_OnFreshStore ensures a new Store reports empty.
func TestStore_IsEmpty_OnFreshStore(t *testing.T) {
	s := NewStore(10)
	if !s.IsEmpty() {
		t.Fatalf("expected a fresh store to be empty")
	}
}
