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

// BackendClient is the only way the Dispatcher talks to the inference
// backend. Implementations own the wire format entirely: building the
// backend request body from (key, data), issuing the HTTP call, and
// parsing the response into one []float64 row per input. The core package
// only ever sees the result as rows to redistribute to callers.
type BackendClient interface {
	Embed(ctx context.Context, key GroupingKey, data []string) ([][]float64, error)
}
