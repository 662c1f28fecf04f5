// Copyright 2025 Tom Barlow
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

package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingLog_AppendWithinCapacity(t *testing.T) {
	r := NewRingLog[int](5)
	r.Append(1)
	r.Append(2)
	r.Append(3)

	assert.Equal(t, []int{1, 2, 3}, r.Snapshot())
	assert.False(t, r.Truncated())
}

func TestRingLog_OverflowDropsOldest(t *testing.T) {
	r := NewRingLog[int](3)
	r.Append(1)
	r.Append(2)
	r.Append(3)
	r.Append(4)
	r.Append(5)

	assert.Equal(t, []int{3, 4, 5}, r.Snapshot())
	assert.True(t, r.Truncated())
}

func TestRingLog_ZeroCapacityTreatedAsOne(t *testing.T) {
	r := NewRingLog[string](0)
	r.Append("a")
	r.Append("b")

	assert.Equal(t, []string{"b"}, r.Snapshot())
	assert.True(t, r.Truncated())
}
