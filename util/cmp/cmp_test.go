// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Int(t *testing.T) {
	ints := []int{-1, 0, 1, 1234}
	for i, smaller := range ints {
		for _, larger := range ints[i+1:] {
			assert.Equal(t, larger, MaxInt(smaller, larger))
			assert.Equal(t, larger, MaxInt(larger, smaller))
			assert.Equal(t, smaller, MinInt(smaller, larger))
			assert.Equal(t, smaller, MinInt(larger, smaller))
		}
		assert.Equal(t, smaller, MaxInt(smaller, smaller))
		assert.Equal(t, smaller, MinInt(smaller, smaller))
	}
}

func Test_String(t *testing.T) {
	strs := []string{"", "a", "abba", "alice", "bob", "zebra"}
	for i, smaller := range strs {
		for _, larger := range strs[i+1:] {
			assert.Equal(t, larger, MaxString(smaller, larger))
			assert.Equal(t, larger, MaxString(larger, smaller))
			assert.Equal(t, smaller, MinString(smaller, larger))
			assert.Equal(t, smaller, MinString(larger, smaller))
		}
	}
}

type testKey string

func (k testKey) Key(b *strings.Builder) {
	b.WriteString("key:")
	b.WriteString(string(k))
}

func Test_GetKey(t *testing.T) {
	assert.Equal(t, "key:bob", GetKey(testKey("bob")))
	assert.Equal(t, "key:", GetKey(testKey("")))
}
