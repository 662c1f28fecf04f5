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

import "fmt"

// snapshotKey identifies a node across two snapshots for diffing purposes:
// role plus accessible name. Two nodes with the same key in both snapshots
// are considered "the same element" even if their ref_id changed.
func snapshotKey(n SnapshotNode) string {
	return fmt.Sprintf("%s\x00%s", n.Role, n.Name)
}

// flattenSnapshot walks a snapshot's tree into a flat map keyed by
// snapshotKey. A key colliding with itself (e.g. two unnamed buttons)
// collapses to the last-seen node, which is an accepted approximation:
// unnamed, same-role siblings aren't distinguishable by this heuristic.
func flattenSnapshot(nodes []SnapshotNode) map[string]SnapshotNode {
	out := make(map[string]SnapshotNode)
	var walk func([]SnapshotNode)
	walk = func(ns []SnapshotNode) {
		for _, n := range ns {
			out[snapshotKey(n)] = n
			walk(n.Children)
		}
	}
	walk(nodes)
	return out
}

// DiffSnapshot computes the node-level delta between an old and new
// snapshot of the same page: nodes present only in new are Added, nodes
// present only in old are Removed, and nodes present in both but with a
// different Value are Changed.
func DiffSnapshot(oldSnap, newSnap Snapshot) SnapshotDiff {
	oldFlat := flattenSnapshot(oldSnap.Nodes)
	newFlat := flattenSnapshot(newSnap.Nodes)

	var diff SnapshotDiff
	for key, n := range newFlat {
		old, existed := oldFlat[key]
		if !existed {
			diff.Added = append(diff.Added, n)
			continue
		}
		if old.Value != n.Value {
			diff.Changed = append(diff.Changed, n)
		}
	}
	for key, n := range oldFlat {
		if _, stillThere := newFlat[key]; !stillThere {
			diff.Removed = append(diff.Removed, n)
		}
	}
	return diff
}
