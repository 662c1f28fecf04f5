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
	"context"
	"fmt"
	"strings"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// resolveSelector implements find_element_with_healing: a direct query
// first, falling back to heuristic role+name matching against the last
// snapshot when the selector isn't found directly.
func (s *Session) resolveSelector(ctx context.Context, pageIndex int, selector string) (string, error) {
	found, err := s.driver.Query(ctx, pageIndex, selector)
	if err != nil {
		return "", err
	}
	if found {
		return selector, nil
	}

	s.mu.Lock()
	last := s.lastSnapshot
	s.mu.Unlock()
	if last == nil {
		return "", &xerrors.ElementNotFoundError{Selector: selector}
	}

	match, ok := healingMatch(last.Nodes, selector)
	if !ok {
		return "", &xerrors.ElementNotFoundError{Selector: selector}
	}
	rebuilt := rebuildSelector(match)

	found, err = s.driver.Query(ctx, pageIndex, rebuilt)
	if err != nil {
		return "", err
	}
	if !found {
		return "", &xerrors.ElementNotFoundError{Selector: selector}
	}
	return rebuilt, nil
}

// healingMatch walks the snapshot tree depth-first looking for exactly one
// node whose role or name heuristically matches selector's semantics
// (case-insensitive substring match, in either direction, between the
// node's non-empty role or name and the selector's trailing
// identifier-like fragment). Returns ok=false if zero or more than one
// node match, since an ambiguous match is as unusable as no match.
func healingMatch(nodes []SnapshotNode, selector string) (SnapshotNode, bool) {
	needle := strings.ToLower(selectorHint(selector))
	if needle == "" {
		return SnapshotNode{}, false
	}
	matchesNeedle := func(s string) bool {
		s = strings.ToLower(s)
		return s != "" && (strings.Contains(s, needle) || strings.Contains(needle, s))
	}

	var matches []SnapshotNode
	var walk func([]SnapshotNode)
	walk = func(ns []SnapshotNode) {
		for _, n := range ns {
			if matchesNeedle(n.Name) || matchesNeedle(n.Role) {
				matches = append(matches, n)
			}
			walk(n.Children)
		}
	}
	walk(nodes)

	if len(matches) != 1 {
		return SnapshotNode{}, false
	}
	return matches[0], true
}

// selectorHint extracts the most distinguishing fragment of a CSS-ish
// selector: the value inside the last #id, [attr="value"], or .class, or
// failing that the trailing path segment.
func selectorHint(selector string) string {
	if i := strings.LastIndex(selector, "#"); i >= 0 {
		return trimNonIdent(selector[i+1:])
	}
	if i := strings.LastIndex(selector, "="); i >= 0 {
		return trimNonIdent(strings.Trim(selector[i+1:], `"'`))
	}
	if i := strings.LastIndex(selector, "."); i >= 0 {
		return trimNonIdent(selector[i+1:])
	}
	fields := strings.Fields(selector)
	if len(fields) == 0 {
		return ""
	}
	return trimNonIdent(fields[len(fields)-1])
}

func trimNonIdent(s string) string {
	end := len(s)
	for i, r := range s {
		if !(r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			end = i
			break
		}
	}
	return s[:end]
}

// rebuildSelector produces a CSS-ish selector for a healed snapshot node,
// preferring its accessible name as an attribute match and falling back to
// its ref_id as a data attribute the driver resolves against the snapshot.
func rebuildSelector(n SnapshotNode) string {
	if n.Name != "" {
		return fmt.Sprintf(`[aria-label="%s"]`, n.Name)
	}
	return fmt.Sprintf(`[data-flowkit-ref="%d"]`, n.RefID)
}
