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

import "encoding/json"

// DocumentInput is the caller-supplied shape for staging a document. IDs
// are never accepted from callers; the index assigns them monotonically.
type DocumentInput struct {
	Fields   map[string]string
	Metadata json.RawMessage
}

// asDocument attaches an assigned id to a staged input.
func (in DocumentInput) asDocument(id uint64) Document {
	fields := make(map[string]string, len(in.Fields))
	for k, v := range in.Fields {
		fields[k] = v
	}
	return Document{ID: id, Fields: fields, Metadata: in.Metadata}
}
