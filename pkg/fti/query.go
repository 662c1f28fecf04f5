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
	"encoding/json"
	"fmt"
	"sort"

	"github.com/itchyny/gojq"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// Search tokenizes query, scores by BM25 every document that all query
// tokens matched (exactly, or within the fuzzy threshold when Fuzzy is
// set), optionally filters the candidates with a gojq predicate, and
// paginates. Requires Built.
func (idx *Index) Search(query string, opts SearchOptions) (SearchResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.st != stateBuilt {
		return SearchResult{}, &xerrors.NotBuiltError{Op: "search"}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	threshold := opts.FuzzyThreshold
	if opts.Fuzzy && threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	allowedFields := idx.allowedFieldIDsLocked(opts.Fields)
	queryTokens := idx.tok.Tokenize(query)
	if len(queryTokens) == 0 {
		return SearchResult{Documents: []ScoredDocument{}}, nil
	}

	terms := idx.matchTermsLocked(queryTokens, opts.Fuzzy, threshold)

	scores := make(map[uint64]*scoredAccumulator)

	for _, term := range terms {
		pl, ok := idx.postings[term]
		if !ok {
			continue
		}
		df := pl.DocumentFrequency()
		for _, p := range pl.Postings {
			if allowedFields != nil {
				if _, ok := allowedFields[p.FieldID]; !ok {
					continue
				}
			}
			weight := idx.fieldWeight(idx.fieldName[p.FieldID])
			docLen := idx.docLength[p.DocID]
			s := bm25TermScore(idx.cfg.BM25K1, idx.cfg.BM25B, df, len(idx.docs), p.TermFrequency, docLen, idx.avgDocLength)

			entry, ok := scores[p.DocID]
			if !ok {
				entry = &scoredAccumulator{docID: p.DocID, highlights: make(map[string]struct{})}
				scores[p.DocID] = entry
			}
			entry.score += s * weight
			entry.highlights[term] = struct{}{}
		}
	}

	// Keep only documents that every query token matched, exactly or (with
	// Fuzzy) through a vocabulary term within threshold edit distance.
	for docID, a := range scores {
	tokens:
		for _, qt := range queryTokens {
			for term := range a.highlights {
				if term == string(qt) || (opts.Fuzzy && levenshtein(string(qt), term) <= threshold) {
					continue tokens
				}
			}
			delete(scores, docID)
			break
		}
	}

	candidates := make([]*scoredAccumulator, 0, len(scores))
	for _, a := range scores {
		candidates = append(candidates, a)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].docID < candidates[j].docID
	})

	if opts.Filter != "" {
		filtered, err := idx.applyFilterLocked(candidates, opts.Filter)
		if err != nil {
			return SearchResult{}, err
		}
		candidates = filtered
	}

	totalHits := len(candidates)

	if opts.Offset > 0 {
		if opts.Offset >= len(candidates) {
			candidates = nil
		} else {
			candidates = candidates[opts.Offset:]
		}
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := SearchResult{Documents: make([]ScoredDocument, 0, len(candidates)), TotalHits: totalHits}
	for _, a := range candidates {
		sd := ScoredDocument{Document: idx.docs[a.docID], Score: a.score}
		if opts.Highlight {
			sd.Highlights = sortedKeys(a.highlights)
		}
		result.Documents = append(result.Documents, sd)
	}
	return result, nil
}

// Suggest returns up to limit vocabulary terms starting with prefix,
// ranked by (prefix-length match, document frequency) descending.
// Requires Built.
func (idx *Index) Suggest(prefix string, limit int) ([]string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.st != stateBuilt {
		return nil, &xerrors.NotBuiltError{Op: "suggest"}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	type candidate struct {
		term string
		df   int
	}
	var matches []candidate
	for term, pl := range idx.postings {
		if len(term) >= len(prefix) && term[:len(prefix)] == prefix {
			matches = append(matches, candidate{term: term, df: pl.DocumentFrequency()})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].df != matches[j].df {
			return matches[i].df > matches[j].df
		}
		return matches[i].term < matches[j].term
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.term
	}
	return out, nil
}

func (idx *Index) allowedFieldIDsLocked(fields []string) map[uint16]struct{} {
	if len(fields) == 0 {
		return nil
	}
	allowed := make(map[uint16]struct{}, len(fields))
	for _, f := range fields {
		if id, ok := idx.fieldID[f]; ok {
			allowed[id] = struct{}{}
		}
	}
	return allowed
}

// matchTermsLocked expands query tokens into exact matches plus, when
// fuzzy is set, every vocabulary term within threshold edit distance.
func (idx *Index) matchTermsLocked(queryTokens []Token, fuzzy bool, threshold int) []string {
	seen := make(map[string]struct{})
	var terms []string
	add := func(t string) {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			terms = append(terms, t)
		}
	}
	for _, qt := range queryTokens {
		term := string(qt)
		if _, ok := idx.postings[term]; ok {
			add(term)
		}
		if fuzzy {
			for vocabTerm := range idx.postings {
				if vocabTerm == term {
					continue
				}
				if levenshtein(term, vocabTerm) <= threshold {
					add(vocabTerm)
				}
			}
		}
	}
	return terms
}

// scoredAccumulator holds one candidate document's running score and the
// terms that matched it, keyed internally by doc id during Search.
type scoredAccumulator struct {
	score      float64
	docID      uint64
	highlights map[string]struct{}
}

// applyFilterLocked evaluates a gojq predicate against each candidate's
// {id, fields, metadata} JSON shape and keeps only documents for which
// the expression yields a truthy, non-empty result.
func (idx *Index) applyFilterLocked(candidates []*scoredAccumulator, expr string) ([]*scoredAccumulator, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, &xerrors.FormatError{Reason: fmt.Sprintf("invalid filter expression: %v", err)}
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, &xerrors.FormatError{Reason: fmt.Sprintf("filter expression failed to compile: %v", err)}
	}

	kept := candidates[:0:0]
	for _, c := range candidates {
		doc := idx.docs[c.docID]
		input := map[string]any{"id": doc.ID, "fields": doc.Fields}
		if len(doc.Metadata) > 0 {
			var meta any
			if err := json.Unmarshal(doc.Metadata, &meta); err == nil {
				input["metadata"] = meta
			}
		}
		if filterTruthy(code, input) {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

func filterTruthy(code *gojq.Code, input any) bool {
	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if err, isErr := v.(error); isErr {
			_ = err
			return false
		}
		switch val := v.(type) {
		case nil:
			continue
		case bool:
			if val {
				return true
			}
		default:
			return true
		}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
