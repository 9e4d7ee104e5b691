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

package plandef

import (
	"sort"
	"strings"
)

// An OutputSet is a set of output names. It's represented as an ordered slice
// of unique names.
type OutputSet []string

// NewOutputSet creates a new OutputSet from the given names, dropping
// duplicates.
func NewOutputSet(names ...string) OutputSet {
	set := make(OutputSet, 0, len(names))
	set = append(set, names...)
	sort.Strings(set)
	unique := set[:0]
	for i, name := range set {
		if i == 0 || name != set[i-1] {
			unique = append(unique, name)
		}
	}
	return unique
}

// Contains returns true if name is in the set, false otherwise.
func (set OutputSet) Contains(name string) bool {
	i := sort.SearchStrings(set, name)
	return i < len(set) && set[i] == name
}

// String returns a string like "{a, b}".
func (set OutputSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, name := range set {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
	}
	b.WriteByte('}')
	return b.String()
}
