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

// Package fti implements a build-once-then-serve inverted index: staged
// document ingestion, tokenization, BM25-ranked search, prefix suggestion,
// fuzzy match, and an exact on-disk binary format.
package fti

import "encoding/json"

// Document is one indexable unit. IDs are assigned monotonically at
// insertion and never reused, even across deletes.
type Document struct {
	ID       uint64            `json:"id"`
	Fields   map[string]string `json:"fields"`
	Metadata json.RawMessage   `json:"metadata,omitempty"`
}

// Token is a normalized term produced by the tokenizer pipeline.
type Token string

// Posting is one occurrence of a term in a document field.
type Posting struct {
	DocID         uint64
	FieldID       uint16
	TermFrequency uint32
	Positions     []uint32
}

// PostingList is the ordered-by-DocID occurrence list for one term.
type PostingList struct {
	Term     string
	Postings []Posting
}

// DocumentFrequency is len(PostingList.Postings): the number of distinct
// documents containing the term.
func (pl *PostingList) DocumentFrequency() int {
	return len(pl.Postings)
}

// state is the index's two-state lifecycle.
type state int

const (
	stateMutable state = iota
	stateBuilt
)

// SearchOptions configures one search() call.
type SearchOptions struct {
	// Fields restricts matching to these field names; nil/empty means all
	// fields known to the index.
	Fields []string
	// Limit caps the number of returned documents. Zero defaults to 10.
	Limit int
	// Offset skips this many top-ranked results before Limit applies.
	Offset int
	// Fuzzy additionally matches vocabulary terms within FuzzyThreshold
	// edit distance of each query token.
	Fuzzy bool
	// FuzzyThreshold is the max Levenshtein distance for fuzzy matching.
	// Zero defaults to 2.
	FuzzyThreshold int
	// Highlight fills each ScoredDocument's Highlights with the sorted,
	// distinct vocabulary terms that matched it; positions and spans are
	// not reported.
	Highlight bool
	// Filter is an optional gojq predicate evaluated against each
	// candidate document's {id, fields, metadata} JSON shape; documents
	// for which the predicate yields a falsy/empty result are dropped
	// before pagination. Empty string means no filtering.
	Filter string
}

// DefaultLimit is applied when SearchOptions.Limit is zero.
const DefaultLimit = 10

// DefaultFuzzyThreshold is applied when SearchOptions.Fuzzy is set but
// FuzzyThreshold is zero.
const DefaultFuzzyThreshold = 2

// ScoredDocument pairs a document with its query score.
type ScoredDocument struct {
	Document   Document `json:"document"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights,omitempty"`
}

// SearchResult is the outcome of one search() call.
type SearchResult struct {
	Documents []ScoredDocument `json:"documents"`
	TotalHits int              `json:"total_hits"`
}

// IndexStats summarizes a Built index.
type IndexStats struct {
	DocCount  int    `json:"doc_count"`
	TermCount int    `json:"term_count"`
	MemBytes  int64  `json:"mem_bytes"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// BM25 default parameters, per the ranking contract.
const (
	DefaultBM25K1 = 1.2
	DefaultBM25B  = 0.75
)
