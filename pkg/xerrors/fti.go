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

package xerrors

import "fmt"

// NotBuiltError indicates a query-phase operation ran against a Mutable index.
type NotBuiltError struct {
	Op string
}

func (e *NotBuiltError) Error() string {
	return fmt.Sprintf("NotBuilt: %s requires a built index", e.Op)
}

// AlreadyBuiltError indicates add_documents ran against a Built index.
type AlreadyBuiltError struct{}

func (e *AlreadyBuiltError) Error() string {
	return "AlreadyBuilt: index is built; call clear() to stage more documents"
}

// IoError wraps a filesystem failure during save/load.
type IoError struct {
	Path  string
	Cause error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("IoError: %s: %v", e.Path, e.Cause)
}

func (e *IoError) Unwrap() error { return e.Cause }

// FormatError indicates a persisted index file failed validation.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("FormatError: %s", e.Reason)
}

// DocumentNotFoundError indicates a doc id has no entry in the index.
type DocumentNotFoundError struct {
	ID uint64
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("DocumentNotFound: %d", e.ID)
}
