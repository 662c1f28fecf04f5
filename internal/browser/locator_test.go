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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

func TestResolveSelector_DirectHitSkipsHealing(t *testing.T) {
	drv := NewFakeDriver()
	drv.Seed(0, "#submit", fakeElement{text: "Submit"})
	sess := &Session{driver: drv}

	resolved, err := sess.resolveSelector(context.Background(), 0, "#submit")
	require.NoError(t, err)
	assert.Equal(t, "#submit", resolved)
}

func TestResolveSelector_HealsAgainstLastSnapshot(t *testing.T) {
	drv := NewFakeDriver()
	drv.Seed(0, `[aria-label="Submit"]`, fakeElement{text: "Submit"})
	sess := &Session{driver: drv}
	sess.lastSnapshot = &Snapshot{Nodes: []SnapshotNode{
		{RefID: 1, Role: "button", Name: "Submit"},
	}}

	resolved, err := sess.resolveSelector(context.Background(), 0, "#stale-submit-id")
	require.NoError(t, err)
	assert.Equal(t, `[aria-label="Submit"]`, resolved)
}

func TestResolveSelector_NoSnapshotFailsOutright(t *testing.T) {
	drv := NewFakeDriver()
	drv.Seed(0, "#other", fakeElement{})
	sess := &Session{driver: drv}

	_, err := sess.resolveSelector(context.Background(), 0, "#missing")
	var nf *xerrors.ElementNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestResolveSelector_AmbiguousHealMatchFails(t *testing.T) {
	drv := NewFakeDriver()
	drv.Seed(0, "#noop", fakeElement{})
	sess := &Session{driver: drv}
	sess.lastSnapshot = &Snapshot{Nodes: []SnapshotNode{
		{RefID: 1, Role: "button", Name: "submit-a"},
		{RefID: 2, Role: "button", Name: "submit-b"},
	}}

	_, err := sess.resolveSelector(context.Background(), 0, "#submit")
	var nf *xerrors.ElementNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestSelectorHint_ExtractsDistinguishingFragment(t *testing.T) {
	cases := map[string]string{
		"#submit-button":            "submit-button",
		`[data-testid="login-btn"]`: "login-btn",
		".primary-cta":              "primary-cta",
		"button.primary":            "primary",
	}
	for selector, want := range cases {
		assert.Equal(t, want, selectorHint(selector), selector)
	}
}
