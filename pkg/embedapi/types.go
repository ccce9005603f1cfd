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

// Package embedapi is the public wire contract for the embedding batch
// proxy: the JSON shapes exchanged with callers and with the inference
// backend, and the conversions between those shapes and the internal
// batchproxy.GroupingKey/data-item model.
package embedapi

import (
	"encoding/json"
	"errors"

	"github.com/btwotwo/batch-proxy/internal/batchproxy"
)

// Inputs accepts either a single string or an array of strings on the
// wire, normalizing to a slice internally, and always marshals back out
// as an array — the backend only ever receives the array form.
type Inputs []string

// UnmarshalJSON implements the untagged string-or-array union.
func (i *Inputs) UnmarshalJSON(data []byte) error {
	var asSlice []string
	if err := json.Unmarshal(data, &asSlice); err == nil {
		*i = asSlice
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*i = []string{asString}
		return nil
	}
	return errors.New("inputs must be a string or an array of strings")
}

// MarshalJSON always emits an array, regardless of which form was
// originally decoded.
func (i Inputs) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(i))
}

// EmbedRequest is the wire shape of both the public POST /embed body and
// the backend POST <target_url>/embed body — the same shape plays both
// roles, just as the grouping parameters round-trip unchanged between the
// two.
type EmbedRequest struct {
	Inputs              Inputs  `json:"inputs"`
	Dimensions          *int    `json:"dimensions,omitempty"`
	Normalize           *bool   `json:"normalize,omitempty"`
	PromptName          *string `json:"prompt_name,omitempty"`
	Truncate            *bool   `json:"truncate,omitempty"`
	TruncationDirection *string `json:"truncation_direction,omitempty"`
}

// ToGroupingKey extracts req's tuning parameters into a batchproxy.GroupingKey.
func ToGroupingKey(req EmbedRequest) batchproxy.GroupingKey {
	var key batchproxy.GroupingKey
	if req.Dimensions != nil {
		key.Dimensions = batchproxy.SomeInt(*req.Dimensions)
	}
	if req.Normalize != nil {
		key.Normalize = batchproxy.SomeBool(*req.Normalize)
	}
	if req.PromptName != nil {
		key.PromptName = batchproxy.SomeString(*req.PromptName)
	}
	if req.Truncate != nil {
		key.Truncate = batchproxy.SomeBool(*req.Truncate)
	}
	if req.TruncationDirection != nil {
		key.TruncationDirection = batchproxy.SomeString(*req.TruncationDirection)
	}
	return key
}

// Decompose splits a public EmbedRequest into the grouping key that
// determines which batch it joins and the ordered data items it
// contributes, normalizing Inputs to a slice in the process.
func Decompose(req EmbedRequest) (batchproxy.GroupingKey, []string) {
	return ToGroupingKey(req), []string(req.Inputs)
}

// BuildRequest is the exact inverse of ToGroupingKey's field extraction: it
// re-assembles a backend-facing EmbedRequest from a grouping key and the
// concatenated data items of an assembled batch.
func BuildRequest(key batchproxy.GroupingKey, data []string) EmbedRequest {
	req := EmbedRequest{Inputs: Inputs(data)}
	if key.Dimensions.Present {
		v := key.Dimensions.Value
		req.Dimensions = &v
	}
	if key.Normalize.Present {
		v := key.Normalize.Value
		req.Normalize = &v
	}
	if key.PromptName.Present {
		v := key.PromptName.Value
		req.PromptName = &v
	}
	if key.Truncate.Present {
		v := key.Truncate.Value
		req.Truncate = &v
	}
	if key.TruncationDirection.Present {
		v := key.TruncationDirection.Value
		req.TruncationDirection = &v
	}
	return req
}
