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

package exec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ebay/quilt/util/cmp"
)

// jsonValue adapts a JSON-decoded result value to cmp.Key, so that any value,
// including list values that Go cannot hash directly, can serve as a hash-map
// key.
type jsonValue struct {
	value interface{}
}

var _ cmp.Key = jsonValue{}

// Key implements cmp.Key. Values of different types never share a key, with
// one exception: all numeric types are keyed by their float64 value, so
// executors that produce Go ints and ones that produce JSON numbers agree on
// identity.
func (j jsonValue) Key(b *strings.Builder) {
	switch v := j.value.(type) {
	case nil:
		b.WriteString("null")
	case string:
		b.WriteByte('s')
		b.WriteString(strconv.Quote(v))
	case bool:
		b.WriteByte('b')
		b.WriteString(strconv.FormatBool(v))
	case float64:
		writeNumberKey(b, v)
	case int:
		writeNumberKey(b, float64(v))
	case int64:
		writeNumberKey(b, float64(v))
	case []interface{}:
		b.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				b.WriteByte(' ')
			}
			jsonValue{value: elem}.Key(b)
		}
		b.WriteByte(']')
	default:
		// Maps and oddball types. fmt prints map keys in sorted order, so
		// this stays deterministic.
		fmt.Fprintf(b, "%T:%v", v, v)
	}
}

func writeNumberKey(b *strings.Builder, v float64) {
	b.WriteByte('n')
	b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}

// joinKey returns a deterministic identity for a join or stitching value. Two
// values with the same key are the same value for joining purposes.
func joinKey(value interface{}) string {
	return cmp.GetKey(jsonValue{value: value})
}
