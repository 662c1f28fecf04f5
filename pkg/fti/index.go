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
	"sort"
	"sync"
	"time"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// IndexConfig configures tokenization, BM25 parameters, and per-field
// score weights for one Index.
type IndexConfig struct {
	Tokenizer    TokenizerConfig
	FieldWeights map[string]float64
	BM25K1       float64
	BM25B        float64
}

// DefaultIndexConfig returns the spec-default configuration: default
// tokenizer pipeline, uniform field weights, k1=1.2, b=0.75.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Tokenizer: DefaultTokenizerConfig(),
		BM25K1:    DefaultBM25K1,
		BM25B:     DefaultBM25B,
	}
}

// Index is a build-once-then-serve inverted index. The zero value is not
// usable; construct with NewIndex.
type Index struct {
	mu  sync.Mutex
	cfg IndexConfig
	tok *Tokenizer

	st        state
	docs      map[uint64]Document
	nextDocID uint64

	fieldID   map[string]uint16
	fieldName []string // fieldID -> name, index-addressed

	postings    map[string]*PostingList
	fieldLength map[uint64]map[uint16]uint32 // docID -> fieldID -> token count

	// docLength and avgDocLength hold the combined (summed-across-fields)
	// per-document length used for BM25 normalization, matching the
	// single-column doc_lengths table in the on-disk format.
	docLength    map[uint64]uint32
	avgDocLength float64

	createdAt int64
	updatedAt int64
}

// NewIndex constructs an empty, Mutable index.
func NewIndex(cfg IndexConfig) *Index {
	if cfg.BM25K1 == 0 {
		cfg.BM25K1 = DefaultBM25K1
	}
	if cfg.BM25B == 0 {
		cfg.BM25B = DefaultBM25B
	}
	idx := &Index{
		cfg:       cfg,
		tok:       NewTokenizer(cfg.Tokenizer),
		st:        stateMutable,
		docs:      make(map[uint64]Document),
		createdAt: time.Now().Unix(),
	}
	idx.updatedAt = idx.createdAt
	return idx
}

// IsBuilt reports whether the index is currently in the Built state.
func (idx *Index) IsBuilt() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.st == stateBuilt
}

func (idx *Index) fieldWeight(name string) float64 {
	if idx.cfg.FieldWeights == nil {
		return 1.0
	}
	if w, ok := idx.cfg.FieldWeights[name]; ok {
		return w
	}
	return 1.0
}

// AddDocuments stages documents for the next build(). Requires Mutable.
func (idx *Index) AddDocuments(inputs ...DocumentInput) ([]uint64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.st != stateMutable {
		return nil, &xerrors.AlreadyBuiltError{}
	}

	ids := make([]uint64, 0, len(inputs))
	for _, in := range inputs {
		id := idx.nextDocID
		idx.nextDocID++
		idx.docs[id] = in.asDocument(id)
		ids = append(ids, id)
	}
	idx.updatedAt = time.Now().Unix()
	return ids, nil
}

// Build freezes staged documents into postings and transitions the index
// from Mutable to Built.
func (idx *Index) Build() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.st != stateMutable {
		return &xerrors.AlreadyBuiltError{}
	}
	idx.rebuildLocked()
	idx.st = stateBuilt
	idx.updatedAt = time.Now().Unix()
	return nil
}

// Clear discards all documents and postings and returns the index to
// Mutable, ready to stage a fresh document set.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.st = stateMutable
	idx.docs = make(map[uint64]Document)
	idx.nextDocID = 0
	idx.fieldID = nil
	idx.fieldName = nil
	idx.postings = nil
	idx.fieldLength = nil
	idx.docLength = nil
	idx.avgDocLength = 0
	idx.updatedAt = time.Now().Unix()
}

// AddDocument stages and immediately rebuilds, per the "simple rebuild"
// incremental-update contract: correctness over amortized efficiency.
// Requires Built.
func (idx *Index) AddDocument(input DocumentInput) (uint64, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.st != stateBuilt {
		return 0, &xerrors.NotBuiltError{Op: "add_document"}
	}
	id := idx.nextDocID
	idx.nextDocID++
	idx.docs[id] = input.asDocument(id)
	idx.rebuildLocked()
	idx.updatedAt = time.Now().Unix()
	return id, nil
}

// UpdateDocument replaces an existing document's fields/metadata and
// rebuilds postings eagerly. Requires Built.
func (idx *Index) UpdateDocument(id uint64, input DocumentInput) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.st != stateBuilt {
		return &xerrors.NotBuiltError{Op: "update"}
	}
	if _, ok := idx.docs[id]; !ok {
		return &xerrors.DocumentNotFoundError{ID: id}
	}
	idx.docs[id] = input.asDocument(id)
	idx.rebuildLocked()
	idx.updatedAt = time.Now().Unix()
	return nil
}

// RemoveDocument deletes a document; its id is never reassigned. Requires
// Built.
func (idx *Index) RemoveDocument(id uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.st != stateBuilt {
		return &xerrors.NotBuiltError{Op: "remove"}
	}
	if _, ok := idx.docs[id]; !ok {
		return &xerrors.DocumentNotFoundError{ID: id}
	}
	delete(idx.docs, id)
	idx.rebuildLocked()
	idx.updatedAt = time.Now().Unix()
	return nil
}

// Stats reports point-in-time index sizing, valid in either lifecycle
// state.
func (idx *Index) Stats() IndexStats {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	return IndexStats{
		DocCount:  len(idx.docs),
		TermCount: len(idx.postings),
		MemBytes:  idx.estimateMemBytesLocked(),
		CreatedAt: idx.createdAt,
		UpdatedAt: idx.updatedAt,
	}
}

func (idx *Index) estimateMemBytesLocked() int64 {
	var n int64
	for docID, doc := range idx.docs {
		_ = docID
		for k, v := range doc.Fields {
			n += int64(len(k) + len(v))
		}
		n += int64(len(doc.Metadata))
	}
	for term, pl := range idx.postings {
		n += int64(len(term))
		for _, p := range pl.Postings {
			n += int64(24 + 4*len(p.Positions))
		}
	}
	return n
}

// rebuildLocked recomputes field ids, postings, and field-length tables
// from idx.docs. Field ids are assigned by sorted field name so the
// output is deterministic across builds of the same staged set, per the
// byte-identical round-trip requirement.
func (idx *Index) rebuildLocked() {
	fieldSet := make(map[string]struct{})
	for _, doc := range idx.docs {
		for name := range doc.Fields {
			fieldSet[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(fieldSet))
	for name := range fieldSet {
		names = append(names, name)
	}
	sort.Strings(names)

	fieldID := make(map[string]uint16, len(names))
	for i, name := range names {
		fieldID[name] = uint16(i)
	}
	idx.fieldID = fieldID
	idx.fieldName = names

	postings := make(map[string]*PostingList)
	fieldLength := make(map[uint64]map[uint16]uint32)

	docIDs := make([]uint64, 0, len(idx.docs))
	for id := range idx.docs {
		docIDs = append(docIDs, id)
	}
	sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })

	for _, docID := range docIDs {
		doc := idx.docs[docID]
		lengths := make(map[uint16]uint32)
		for _, name := range names {
			text, ok := doc.Fields[name]
			if !ok {
				continue
			}
			fid := fieldID[name]
			tokens := idx.tok.Tokenize(text)
			lengths[fid] = uint32(len(tokens))

			termAt := make(map[string][]uint32)
			for pos, tk := range tokens {
				term := string(tk)
				termAt[term] = append(termAt[term], uint32(pos))
			}
			terms := make([]string, 0, len(termAt))
			for term := range termAt {
				terms = append(terms, term)
			}
			sort.Strings(terms)
			for _, term := range terms {
				positions := termAt[term]
				pl, ok := postings[term]
				if !ok {
					pl = &PostingList{Term: term}
					postings[term] = pl
				}
				pl.Postings = append(pl.Postings, Posting{
					DocID:         docID,
					FieldID:       fid,
					TermFrequency: uint32(len(positions)),
					Positions:     positions,
				})
			}
		}
		fieldLength[docID] = lengths
	}

	for _, pl := range postings {
		sort.Slice(pl.Postings, func(i, j int) bool { return pl.Postings[i].DocID < pl.Postings[j].DocID })
	}

	docLength := make(map[uint64]uint32, len(docIDs))
	var totalLength float64
	for docID, lengths := range fieldLength {
		var sum uint32
		for _, l := range lengths {
			sum += l
		}
		docLength[docID] = sum
		totalLength += float64(sum)
	}
	var avgDocLength float64
	if len(docIDs) > 0 {
		avgDocLength = totalLength / float64(len(docIDs))
	}

	idx.postings = postings
	idx.fieldLength = fieldLength
	idx.docLength = docLength
	idx.avgDocLength = avgDocLength
}
