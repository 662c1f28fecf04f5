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
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"sort"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

// magic identifies a flowkit FTI container file.
var magic = [8]byte{'W', 'D', 'F', 'T', 'I', 'D', 'X', 0}

// formatVersion is the on-disk container version this build writes and
// the only version it accepts on load.
const formatVersion uint32 = 1

var byteOrder = binary.BigEndian

// SaveToFile serializes the Built index to path as a versioned binary
// container: header magic, version, length-prefixed document/vocabulary/
// doc-length sections, and a trailing CRC32 over everything before it.
// The inverted-index payload is byte-identical across repeated builds of
// the same staged document set.
func (idx *Index) SaveToFile(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.st != stateBuilt {
		return &xerrors.NotBuiltError{Op: "save_to_file"}
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	_ = binary.Write(&buf, byteOrder, formatVersion)

	idx.writeDocumentsLocked(&buf)
	_ = binary.Write(&buf, byteOrder, idx.nextDocID)
	idx.writeVocabularyLocked(&buf)
	idx.writeDocLengthsLocked(&buf)

	sum := crc32.ChecksumIEEE(buf.Bytes())

	f, err := os.Create(path)
	if err != nil {
		return &xerrors.IoError{Path: path, Cause: err}
	}
	defer f.Close()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return &xerrors.IoError{Path: path, Cause: err}
	}
	if err := binary.Write(f, byteOrder, sum); err != nil {
		return &xerrors.IoError{Path: path, Cause: err}
	}
	return nil
}

func (idx *Index) writeDocumentsLocked(buf *bytes.Buffer) {
	ids := make([]uint64, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	_ = binary.Write(buf, byteOrder, uint64(len(ids)))
	for _, id := range ids {
		doc := idx.docs[id]
		_ = binary.Write(buf, byteOrder, doc.ID)

		fieldNames := make([]string, 0, len(doc.Fields))
		for name := range doc.Fields {
			fieldNames = append(fieldNames, name)
		}
		sort.Strings(fieldNames)

		_ = binary.Write(buf, byteOrder, uint16(len(fieldNames)))
		for _, name := range fieldNames {
			value := doc.Fields[name]
			_ = binary.Write(buf, byteOrder, uint16(len(name)))
			buf.WriteString(name)
			_ = binary.Write(buf, byteOrder, uint32(len(value)))
			buf.WriteString(value)
		}

		_ = binary.Write(buf, byteOrder, uint32(len(doc.Metadata)))
		buf.Write(doc.Metadata)
	}
}

func (idx *Index) writeVocabularyLocked(buf *bytes.Buffer) {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	_ = binary.Write(buf, byteOrder, uint64(len(terms)))
	for _, term := range terms {
		pl := idx.postings[term]
		_ = binary.Write(buf, byteOrder, uint16(len(term)))
		buf.WriteString(term)
		_ = binary.Write(buf, byteOrder, uint32(pl.DocumentFrequency()))
		_ = binary.Write(buf, byteOrder, uint32(len(pl.Postings)))
		for _, p := range pl.Postings {
			_ = binary.Write(buf, byteOrder, p.DocID)
			_ = binary.Write(buf, byteOrder, p.FieldID)
			_ = binary.Write(buf, byteOrder, p.TermFrequency)
			_ = binary.Write(buf, byteOrder, uint16(len(p.Positions)))
			for _, pos := range p.Positions {
				_ = binary.Write(buf, byteOrder, pos)
			}
		}
	}
}

func (idx *Index) writeDocLengthsLocked(buf *bytes.Buffer) {
	ids := make([]uint64, 0, len(idx.docLength))
	for id := range idx.docLength {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	_ = binary.Write(buf, byteOrder, uint64(len(ids)))
	for _, id := range ids {
		_ = binary.Write(buf, byteOrder, id)
		_ = binary.Write(buf, byteOrder, idx.docLength[id])
	}
}

// LoadFromFile reads a container written by SaveToFile and returns a
// Built index with identical query behavior. It rejects magic mismatch,
// unknown version, and CRC mismatch.
func LoadFromFile(path string, cfg IndexConfig) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &xerrors.IoError{Path: path, Cause: err}
	}
	if len(raw) < len(magic)+4+4 {
		return nil, &xerrors.FormatError{Reason: "file too short to contain a valid header and checksum"}
	}

	body, wantSum := raw[:len(raw)-4], raw[len(raw)-4:]
	gotSum := crc32.ChecksumIEEE(body)
	if byteOrder.Uint32(wantSum) != gotSum {
		return nil, &xerrors.FormatError{Reason: "crc32 mismatch"}
	}

	r := bytes.NewReader(body)

	var gotMagic [8]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, &xerrors.FormatError{Reason: "truncated magic"}
	}
	if gotMagic != magic {
		return nil, &xerrors.FormatError{Reason: "magic mismatch"}
	}

	var version uint32
	if err := binary.Read(r, byteOrder, &version); err != nil {
		return nil, &xerrors.FormatError{Reason: "truncated version"}
	}
	if version != formatVersion {
		return nil, &xerrors.FormatError{Reason: "unknown version"}
	}

	idx := NewIndex(cfg)

	docs, err := readDocuments(r)
	if err != nil {
		return nil, err
	}
	idx.docs = docs

	var nextDocID uint64
	if err := binary.Read(r, byteOrder, &nextDocID); err != nil {
		return nil, &xerrors.FormatError{Reason: "truncated next_doc_id"}
	}
	idx.nextDocID = nextDocID

	if err := idx.readVocabularyAndLengthsLocked(r); err != nil {
		return nil, err
	}

	idx.st = stateBuilt
	return idx, nil
}

func readDocuments(r *bytes.Reader) (map[uint64]Document, error) {
	var docCount uint64
	if err := binary.Read(r, byteOrder, &docCount); err != nil {
		return nil, &xerrors.FormatError{Reason: "truncated doc_count"}
	}

	docs := make(map[uint64]Document, docCount)
	for i := uint64(0); i < docCount; i++ {
		var id uint64
		if err := binary.Read(r, byteOrder, &id); err != nil {
			return nil, &xerrors.FormatError{Reason: "truncated document id"}
		}
		var fieldCount uint16
		if err := binary.Read(r, byteOrder, &fieldCount); err != nil {
			return nil, &xerrors.FormatError{Reason: "truncated field_count"}
		}
		fields := make(map[string]string, fieldCount)
		for f := uint16(0); f < fieldCount; f++ {
			name, err := readString16(r)
			if err != nil {
				return nil, err
			}
			value, err := readString32(r)
			if err != nil {
				return nil, err
			}
			fields[name] = value
		}
		var metaLen uint32
		if err := binary.Read(r, byteOrder, &metaLen); err != nil {
			return nil, &xerrors.FormatError{Reason: "truncated metadata_len"}
		}
		meta := make([]byte, metaLen)
		if _, err := io.ReadFull(r, meta); err != nil {
			return nil, &xerrors.FormatError{Reason: "truncated metadata"}
		}
		docs[id] = Document{ID: id, Fields: fields, Metadata: meta}
	}
	return docs, nil
}

func (idx *Index) readVocabularyAndLengthsLocked(r *bytes.Reader) error {
	var vocabCount uint64
	if err := binary.Read(r, byteOrder, &vocabCount); err != nil {
		return &xerrors.FormatError{Reason: "truncated vocab_count"}
	}

	postings := make(map[string]*PostingList, vocabCount)
	for i := uint64(0); i < vocabCount; i++ {
		term, err := readString16(r)
		if err != nil {
			return err
		}
		var df uint32
		if err := binary.Read(r, byteOrder, &df); err != nil {
			return &xerrors.FormatError{Reason: "truncated df"}
		}
		var postingsLen uint32
		if err := binary.Read(r, byteOrder, &postingsLen); err != nil {
			return &xerrors.FormatError{Reason: "truncated postings_len"}
		}
		pl := &PostingList{Term: term, Postings: make([]Posting, 0, postingsLen)}
		for p := uint32(0); p < postingsLen; p++ {
			var docID uint64
			var fieldID uint16
			var tf uint32
			var positionsLen uint16
			if err := binary.Read(r, byteOrder, &docID); err != nil {
				return &xerrors.FormatError{Reason: "truncated posting doc_id"}
			}
			if err := binary.Read(r, byteOrder, &fieldID); err != nil {
				return &xerrors.FormatError{Reason: "truncated posting field_id"}
			}
			if err := binary.Read(r, byteOrder, &tf); err != nil {
				return &xerrors.FormatError{Reason: "truncated posting tf"}
			}
			if err := binary.Read(r, byteOrder, &positionsLen); err != nil {
				return &xerrors.FormatError{Reason: "truncated positions_len"}
			}
			positions := make([]uint32, positionsLen)
			for k := range positions {
				if err := binary.Read(r, byteOrder, &positions[k]); err != nil {
					return &xerrors.FormatError{Reason: "truncated position"}
				}
			}
			pl.Postings = append(pl.Postings, Posting{DocID: docID, FieldID: fieldID, TermFrequency: tf, Positions: positions})
		}
		postings[term] = pl
	}
	idx.postings = postings

	var lengthCount uint64
	if err := binary.Read(r, byteOrder, &lengthCount); err != nil {
		return &xerrors.FormatError{Reason: "truncated doc_lengths_count"}
	}
	docLength := make(map[uint64]uint32, lengthCount)
	var total float64
	for i := uint64(0); i < lengthCount; i++ {
		var docID uint64
		var length uint32
		if err := binary.Read(r, byteOrder, &docID); err != nil {
			return &xerrors.FormatError{Reason: "truncated doc_length doc_id"}
		}
		if err := binary.Read(r, byteOrder, &length); err != nil {
			return &xerrors.FormatError{Reason: "truncated doc_length value"}
		}
		docLength[docID] = length
		total += float64(length)
	}
	idx.docLength = docLength
	if lengthCount > 0 {
		idx.avgDocLength = total / float64(lengthCount)
	}

	idx.rebuildFieldNamesLocked()
	idx.rebuildFieldLengthFromDocsLocked()
	return nil
}

// rebuildFieldNamesLocked reconstructs the fieldID->name table from the
// document field names, since field names themselves are not persisted
// in the vocabulary section (only numeric field ids are, per the
// on-disk format). Assignment uses the same sorted-name rule rebuildLocked
// uses, so ids match what a fresh build() over the same documents
// would assign.
func (idx *Index) rebuildFieldNamesLocked() {
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
}

// rebuildFieldLengthFromDocsLocked recomputes the per-(doc,field) token
// count table by re-tokenizing the loaded documents. It is not persisted
// directly; only the combined per-document length is, per the on-disk
// format's doc_lengths section. Re-tokenizing with the same pipeline
// used at save time reproduces identical counts.
func (idx *Index) rebuildFieldLengthFromDocsLocked() {
	fieldLength := make(map[uint64]map[uint16]uint32, len(idx.docs))
	for docID, doc := range idx.docs {
		lengths := make(map[uint16]uint32)
		for name, text := range doc.Fields {
			fid, ok := idx.fieldID[name]
			if !ok {
				continue
			}
			lengths[fid] = uint32(len(idx.tok.Tokenize(text)))
		}
		fieldLength[docID] = lengths
	}
	idx.fieldLength = fieldLength
}

func readString16(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, byteOrder, &n); err != nil {
		return "", &xerrors.FormatError{Reason: "truncated string length"}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", &xerrors.FormatError{Reason: "truncated string"}
	}
	return string(buf), nil
}

func readString32(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, byteOrder, &n); err != nil {
		return "", &xerrors.FormatError{Reason: "truncated string length"}
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", &xerrors.FormatError{Reason: "truncated string"}
	}
	return string(buf), nil
}
