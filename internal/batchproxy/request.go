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

import "context"

// Request is one caller's share of a future batch: its data items, in the
// order they must reappear in the response, its caller id for log
// correlation, the reply channel its eventual Result is delivered on, and
// the caller's own context so a dispatch can tell whether the caller is
// still there to receive it. Ctx may be nil; callers that don't track a
// per-request context are treated as never done.
type Request struct {
	CallerID string
	Data     []string
	Reply    ReplyChannel
	Ctx      context.Context
}

// Size is the number of data items this request contributes to whatever
// batch it joins. The Request Store's size bound is measured in these
// units, not in request count.
func (r Request) Size() int {
	return len(r.Data)
}
