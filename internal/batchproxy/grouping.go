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

// Package batchproxy implements a request-coalescing reverse proxy: it
// groups concurrent callers' data by identical tuning parameters and turns
// many small backend calls into few large ones.
package batchproxy

// IntOption is an optional int that remains comparable, so a struct built
// from these fields can be used as a map key. A pointer would work for
// "optional" but two requests carrying equal values in different pointers
// would wrongly land in different buckets.
type IntOption struct {
	Value   int
	Present bool
}

// SomeInt returns a present IntOption.
func SomeInt(v int) IntOption { return IntOption{Value: v, Present: true} }

// BoolOption is the bool analog of IntOption.
type BoolOption struct {
	Value   bool
	Present bool
}

// SomeBool returns a present BoolOption.
func SomeBool(v bool) BoolOption { return BoolOption{Value: v, Present: true} }

// StringOption is the string analog of IntOption.
type StringOption struct {
	Value   string
	Present bool
}

// SomeString returns a present StringOption.
func SomeString(v string) StringOption { return StringOption{Value: v, Present: true} }

// GroupingKey is the structural-equality tuple of tuning parameters that
// determines which requests may be coalesced into the same backend call.
// Every field is optional; two requests group together only when every
// field matches exactly, including "both absent". GroupingKey is always
// passed by value and is comparable, so it can be used directly as a map
// key (see Manager).
type GroupingKey struct {
	Dimensions          IntOption
	Normalize           BoolOption
	PromptName          StringOption
	Truncate            BoolOption
	TruncationDirection StringOption
}
