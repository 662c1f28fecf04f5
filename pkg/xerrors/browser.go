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

// NoPageError indicates a command targeted a session with no active page.
type NoPageError struct {
	Session string
}

func (e *NoPageError) Error() string {
	return fmt.Sprintf("NoPage: session %q has no active page", e.Session)
}

// ElementNotFoundError indicates a selector resolved to nothing, even after
// self-healing fallback against the last snapshot.
type ElementNotFoundError struct {
	Selector string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("ElementNotFound: %s", e.Selector)
}

// InvalidCommandError indicates an unroutable or malformed request.
type InvalidCommandError struct {
	Message string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("InvalidCommand: %s", e.Message)
}

// DaemonNotRunningError indicates a client could not reach the daemon.
type DaemonNotRunningError struct {
	Addr string
}

func (e *DaemonNotRunningError) Error() string {
	return fmt.Sprintf("DaemonNotRunning: %s", e.Addr)
}

// BrowserError wraps a fatal error from the underlying driver.
type BrowserError struct {
	Cause error
}

func (e *BrowserError) Error() string {
	return fmt.Sprintf("Browser: %v", e.Cause)
}

func (e *BrowserError) Unwrap() error { return e.Cause }

// InvalidIndexError indicates a tab/page index was out of bounds.
type InvalidIndexError struct {
	Index int
	Len   int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("InvalidIndex: %d (have %d pages)", e.Index, e.Len)
}

// BrowserTimeoutError indicates a driver call or WaitFor exceeded its deadline.
type BrowserTimeoutError struct {
	Op string
}

func (e *BrowserTimeoutError) Error() string {
	return fmt.Sprintf("Timeout: %s", e.Op)
}
