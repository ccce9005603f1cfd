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
)

// TestReplyChannel_Send_DeliversResult ensures a sent Result reaches Recv.
func TestReplyChannel_Send_DeliversResult(t *testing.T) {
	r := NewReplyChannel()
	want := Result{Embeddings: [][]float64{{1, 2}}}
	if delivered := r.Send(context.Background(), want); !delivered {
		t.Fatalf("expected Send to report delivered")
	}

	got := r.Recv()
	if len(got.Embeddings) != 1 || got.Embeddings[0][0] != 1 {
		t.Fatalf("expected delivered embeddings, got %+v", got)
	}
	if got.Err != nil {
		t.Fatalf("expected no error, got %v", got.Err)
	}
}

// TestReplyChannel_Abandon_YieldsAbandonedError ensures Recv sees
// ErrRequestAbandoned when the sender side is dropped without a Send.
func TestReplyChannel_Abandon_YieldsAbandonedError(t *testing.T) {
	r := NewReplyChannel()
	r.Abandon()

	got := r.Recv()
	if !errors.Is(got.Err, ErrRequestAbandoned) {
		t.Fatalf("expected ErrRequestAbandoned, got %v", got.Err)
	}
}

// TestReplyChannel_Send_IsExactlyOnce ensures a second Send after the
// first has no effect and does not panic or deadlock.
func TestReplyChannel_Send_IsExactlyOnce(t *testing.T) {
	r := NewReplyChannel()
	r.Send(context.Background(), Result{Err: errors.New("first")})
	r.Send(context.Background(), Result{Err: errors.New("second")})

	got := r.Recv()
	if got.Err.Error() != "first" {
		t.Fatalf("expected the first Send to win, got %v", got.Err)
	}
}

// TestReplyChannel_Send_WithDoneContextIsDroppedNotDelivered ensures a
// Send whose caller context is already done reports delivered=false and
// leaves the channel closed with no value, exactly like Abandon.
func TestReplyChannel_Send_WithDoneContextIsDroppedNotDelivered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReplyChannel()
	if delivered := r.Send(ctx, Result{Embeddings: [][]float64{{1}}}); delivered {
		t.Fatalf("expected Send to report not delivered for a done context")
	}

	got := r.Recv()
	if got.Embeddings != nil {
		t.Fatalf("expected no embeddings delivered, got %+v", got)
	}
}

// TestReplyChannel_Send_WithNilContextIsNeverTreatedAsDone ensures a nil
// Ctx (as produced by internal callers that don't track one) behaves like
// context.Background, not like an already-done context.
func TestReplyChannel_Send_WithNilContextIsNeverTreatedAsDone(t *testing.T) {
	r := NewReplyChannel()
	if delivered := r.Send(nil, Result{Embeddings: [][]float64{{1}}}); !delivered {
		t.Fatalf("expected Send with nil ctx to deliver")
	}
}
