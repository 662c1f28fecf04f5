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

package workflow

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

func TestRegistry_RegisterGetList(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register(Workflow{ID: "b", Name: "Beta"}))
	require.NoError(t, reg.Register(Workflow{ID: "a", Name: "Alpha"}))

	got, err := reg.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Name)

	all := reg.List()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID) // sorted
	assert.Equal(t, "b", all[1].ID)
}

func TestRegistry_RegisterRejectsEmptyID(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(Workflow{ID: ""})
	assert.Error(t, err)
}

func TestRegistry_GetMissingReturnsNotFound(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("nope")
	var notFound *xerrors.WorkflowNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Workflow{ID: "x"}))
	require.NoError(t, reg.Unregister("x"))

	_, err := reg.Get("x")
	assert.Error(t, err)

	err = reg.Unregister("x")
	assert.Error(t, err)
}

func TestBoltRegistry_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.db")

	reg, err := NewBoltRegistry(path)
	require.NoError(t, err)
	require.NoError(t, reg.Register(Workflow{ID: "persisted", Name: "Persisted"}))
	require.NoError(t, reg.Close())

	reopened, err := NewBoltRegistry(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("persisted")
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.Name)
}
