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

package fti

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

func buildHundredDocIndex(t *testing.T) *Index {
	t.Helper()
	idx := NewIndex(DefaultIndexConfig())
	inputs := make([]DocumentInput, 0, 100)
	words := []string{"rust", "python", "go", "programming", "language", "systems", "web", "compiler"}
	for i := 0; i < 100; i++ {
		text := fmt.Sprintf("%s %s document number %d", words[i%len(words)], words[(i+3)%len(words)], i)
		inputs = append(inputs, DocumentInput{
			Fields:   map[string]string{"title": text},
			Metadata: []byte(fmt.Sprintf(`{"n":%d}`, i)),
		})
	}
	_, err := idx.AddDocuments(inputs...)
	require.NoError(t, err)
	require.NoError(t, idx.Build())
	return idx
}

func TestPersist_SaveThenLoadRequiresBuilt(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	_, err := idx.AddDocuments(DocumentInput{Fields: map[string]string{"title": "widget"}})
	require.NoError(t, err)

	err = idx.SaveToFile(filepath.Join(t.TempDir(), "out.fti"))
	var notBuilt *xerrors.NotBuiltError
	assert.ErrorAs(t, err, &notBuilt)
}

func TestPersist_RoundTripIdenticalQueries(t *testing.T) {
	idx := buildHundredDocIndex(t)
	path := filepath.Join(t.TempDir(), "corpus.fti")
	require.NoError(t, idx.SaveToFile(path))

	loaded, err := LoadFromFile(path, DefaultIndexConfig())
	require.NoError(t, err)

	queries := []string{"rust programming", "python", "compiler systems", "go language", "document number 42"}
	for _, q := range queries {
		want, err := idx.Search(q, SearchOptions{Limit: 20})
		require.NoError(t, err)
		got, err := loaded.Search(q, SearchOptions{Limit: 20})
		require.NoError(t, err)

		require.Equal(t, want.TotalHits, got.TotalHits, "query %q", q)
		require.Len(t, got.Documents, len(want.Documents))
		for i := range want.Documents {
			assert.Equal(t, want.Documents[i].Document.ID, got.Documents[i].Document.ID, "query %q result %d", q, i)
			assert.InDelta(t, want.Documents[i].Score, got.Documents[i].Score, 1e-9, "query %q result %d", q, i)
		}
	}
}

func TestPersist_RoundTripPreservesDocumentFieldsAndMetadata(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	_, err := idx.AddDocuments(DocumentInput{
		Fields:   map[string]string{"title": "widget", "body": "a small widget"},
		Metadata: []byte(`{"category":"tools"}`),
	})
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	path := filepath.Join(t.TempDir(), "one.fti")
	require.NoError(t, idx.SaveToFile(path))

	loaded, err := LoadFromFile(path, DefaultIndexConfig())
	require.NoError(t, err)

	stats := loaded.Stats()
	assert.Equal(t, 1, stats.DocCount)

	res, err := loaded.Search("widget", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "widget", res.Documents[0].Document.Fields["title"])
	assert.JSONEq(t, `{"category":"tools"}`, string(res.Documents[0].Document.Metadata))
}

func TestPersist_LoadRejectsMagicMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.fti")
	require.NoError(t, os.WriteFile(path, []byte("not-a-valid-fti-file-at-all-00"), 0o600))

	_, err := LoadFromFile(path, DefaultIndexConfig())
	var formatErr *xerrors.FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestPersist_LoadRejectsCorruptedCRC(t *testing.T) {
	idx := buildHundredDocIndex(t)
	path := filepath.Join(t.TempDir(), "corrupt.fti")
	require.NoError(t, idx.SaveToFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)/2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = LoadFromFile(path, DefaultIndexConfig())
	var formatErr *xerrors.FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestPersist_LoadRejectsMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.fti"), DefaultIndexConfig())
	var ioErr *xerrors.IoError
	assert.ErrorAs(t, err, &ioErr)
}

func TestPersist_SaveIsDeterministicAcrossBuilds(t *testing.T) {
	build := func() []byte {
		idx := buildHundredDocIndex(t)
		path := filepath.Join(t.TempDir(), "det.fti")
		require.NoError(t, idx.SaveToFile(path))
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		return raw
	}
	a := build()
	b := build()
	assert.Equal(t, a, b)
}
