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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildThreeDocIndex(t *testing.T) *Index {
	t.Helper()
	idx := NewIndex(DefaultIndexConfig())
	_, err := idx.AddDocuments(
		DocumentInput{Fields: map[string]string{"title": "Rust programming"}},
		DocumentInput{Fields: map[string]string{"title": "Rust programming language"}},
		DocumentInput{Fields: map[string]string{"title": "Python programming"}},
	)
	require.NoError(t, err)
	require.NoError(t, idx.Build())
	return idx
}

func TestSearch_RankedQueryMatchesScenario6(t *testing.T) {
	idx := buildThreeDocIndex(t)

	res, err := idx.Search("rust programming", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalHits)

	ids := make(map[uint64]bool)
	for _, d := range res.Documents {
		ids[d.Document.ID] = true
	}
	assert.True(t, ids[0])
	assert.True(t, ids[1])
	assert.False(t, ids[2])
}

func TestSearch_SortedDescendingScoreTieBrokenByDocID(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	_, err := idx.AddDocuments(
		DocumentInput{Fields: map[string]string{"title": "alpha"}},
		DocumentInput{Fields: map[string]string{"title": "alpha"}},
	)
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	res, err := idx.Search("alpha", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)
	assert.Equal(t, uint64(0), res.Documents[0].Document.ID)
	assert.Equal(t, uint64(1), res.Documents[1].Document.ID)
	assert.Equal(t, res.Documents[0].Score, res.Documents[1].Score)
}

func TestSearch_PaginationOffsetLimit(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	inputs := make([]DocumentInput, 0, 5)
	for i := 0; i < 5; i++ {
		inputs = append(inputs, DocumentInput{Fields: map[string]string{"title": "widget"}})
	}
	_, err := idx.AddDocuments(inputs...)
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	res, err := idx.Search("widget", SearchOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalHits)
	assert.Len(t, res.Documents, 2)
	assert.Equal(t, uint64(1), res.Documents[0].Document.ID)
	assert.Equal(t, uint64(2), res.Documents[1].Document.ID)
}

func TestSearch_FuzzyMatchesNearbyVocabulary(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	_, err := idx.AddDocuments(DocumentInput{Fields: map[string]string{"title": "kitten"}})
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	res, err := idx.Search("sitten", SearchOptions{Fuzzy: true, FuzzyThreshold: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalHits)
}

func TestSearch_NoFuzzyFindsNothingForTypo(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	_, err := idx.AddDocuments(DocumentInput{Fields: map[string]string{"title": "kitten"}})
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	res, err := idx.Search("sitten", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalHits)
}

func TestSearch_FieldScoping(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	_, err := idx.AddDocuments(
		DocumentInput{Fields: map[string]string{"title": "widget", "body": "unrelated"}},
		DocumentInput{Fields: map[string]string{"title": "unrelated", "body": "widget"}},
	)
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	res, err := idx.Search("widget", SearchOptions{Fields: []string{"title"}})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, uint64(0), res.Documents[0].Document.ID)
}

func TestSearch_FilterPredicateNarrowsResults(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	_, err := idx.AddDocuments(
		DocumentInput{Fields: map[string]string{"title": "widget"}, Metadata: []byte(`{"category":"a"}`)},
		DocumentInput{Fields: map[string]string{"title": "widget"}, Metadata: []byte(`{"category":"b"}`)},
	)
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	res, err := idx.Search("widget", SearchOptions{Filter: `.metadata.category == "b"`})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, uint64(1), res.Documents[0].Document.ID)
	assert.Equal(t, 1, res.TotalHits)
}

func TestSearch_InvalidFilterExpressionReturnsFormatError(t *testing.T) {
	idx := buildThreeDocIndex(t)
	_, err := idx.Search("rust", SearchOptions{Filter: "not valid jq((("})
	require.Error(t, err)
}

func TestSuggest_ReturnsPrefixMatchesOnly(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	_, err := idx.AddDocuments(
		DocumentInput{Fields: map[string]string{"title": "programming programmer program"}},
	)
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	terms, err := idx.Suggest("program", 10)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(terms), 10)
	for _, term := range terms {
		assert.Contains(t, term, "program")
	}
}

func TestSuggest_RequiresBuilt(t *testing.T) {
	idx := NewIndex(DefaultIndexConfig())
	_, err := idx.AddDocuments(DocumentInput{Fields: map[string]string{"title": "widget"}})
	require.NoError(t, err)

	_, err = idx.Suggest("wid", 10)
	require.Error(t, err)
}

func TestSearch_EmptyQueryYieldsNoResults(t *testing.T) {
	idx := buildThreeDocIndex(t)
	res, err := idx.Search("", SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalHits)
	assert.Empty(t, res.Documents)
}
