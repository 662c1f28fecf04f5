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

func TestDiffSnapshot_AddedRemovedChanged(t *testing.T) {
	old := Snapshot{Nodes: []SnapshotNode{
		{RefID: 1, Role: "button", Name: "Submit", Value: ""},
		{RefID: 2, Role: "textbox", Name: "Email", Value: "old@example.com"},
		{RefID: 3, Role: "link", Name: "Cancel"},
	}}
	newer := Snapshot{Nodes: []SnapshotNode{
		{RefID: 10, Role: "button", Name: "Submit", Value: ""},
		{RefID: 11, Role: "textbox", Name: "Email", Value: "new@example.com"},
		{RefID: 12, Role: "button", Name: "New Action"},
	}}

	diff := DiffSnapshot(old, newer)

	assert.Len(t, diff.Added, 1)
	assert.Equal(t, "New Action", diff.Added[0].Name)

	assert.Len(t, diff.Removed, 1)
	assert.Equal(t, "Cancel", diff.Removed[0].Name)

	assert.Len(t, diff.Changed, 1)
	assert.Equal(t, "new@example.com", diff.Changed[0].Value)
}

func TestDiffSnapshot_NestedChildrenAreWalked(t *testing.T) {
	old := Snapshot{Nodes: []SnapshotNode{
		{Role: "form", Name: "login", Children: []SnapshotNode{
			{Role: "textbox", Name: "Username", Value: ""},
		}},
	}}
	newer := Snapshot{Nodes: []SnapshotNode{
		{Role: "form", Name: "login", Children: []SnapshotNode{
			{Role: "textbox", Name: "Username", Value: "alice"},
		}},
	}}

	diff := DiffSnapshot(old, newer)
	assert.Len(t, diff.Changed, 1)
	assert.Equal(t, "alice", diff.Changed[0].Value)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
}

func TestDiffSnapshot_IdenticalProducesEmptyDiff(t *testing.T) {
	snap := Snapshot{Nodes: []SnapshotNode{{Role: "button", Name: "OK"}}}
	diff := DiffSnapshot(snap, snap)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.Empty(t, diff.Changed)
}
