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
	"encoding/json"
	"sort"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/wrikka/wpackages-sub001/pkg/xerrors"
)

var workflowsBucket = []byte("workflows")

// Registry holds registered workflow definitions. An in-memory map serves
// reads; a bbolt database, when present, makes registrations durable across
// process restarts. Registered workflows are immutable: once stored, a
// workflow is only ever replaced wholesale (re-Register) or removed
// (Unregister), matching spec.md's registry contract.
type Registry struct {
	mu        sync.RWMutex
	workflows map[string]Workflow
	db        *bolt.DB
}

// NewRegistry returns an in-memory-only Registry.
func NewRegistry() *Registry {
	return &Registry{workflows: make(map[string]Workflow)}
}

// NewBoltRegistry opens (creating if absent) a bbolt database at path and
// loads any previously persisted workflows into memory.
func NewBoltRegistry(path string) (*Registry, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, &xerrors.IoError{Path: path, Cause: err}
	}

	r := &Registry{workflows: make(map[string]Workflow), db: db}

	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(workflowsBucket)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(k, v []byte) error {
			var wf Workflow
			if err := json.Unmarshal(v, &wf); err != nil {
				return err
			}
			r.workflows[wf.ID] = wf
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, &xerrors.IoError{Path: path, Cause: err}
	}
	return r, nil
}

// Close releases the underlying bbolt database, if any.
func (r *Registry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Register stores wf, replacing any prior definition under the same ID.
func (r *Registry) Register(wf Workflow) error {
	if wf.ID == "" {
		return &xerrors.ValidationFailedError{Message: "workflow id must not be empty"}
	}

	if r.db != nil {
		encoded, err := json.Marshal(wf)
		if err != nil {
			return &xerrors.FormatError{Reason: err.Error()}
		}
		err = r.db.Update(func(tx *bolt.Tx) error {
			bucket := tx.Bucket(workflowsBucket)
			return bucket.Put([]byte(wf.ID), encoded)
		})
		if err != nil {
			return &xerrors.IoError{Path: "workflows", Cause: err}
		}
	}

	r.mu.Lock()
	r.workflows[wf.ID] = wf
	r.mu.Unlock()
	return nil
}

// Unregister removes a workflow definition by id.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	_, ok := r.workflows[id]
	if ok {
		delete(r.workflows, id)
	}
	r.mu.Unlock()

	if !ok {
		return &xerrors.WorkflowNotFoundError{ID: id}
	}

	if r.db != nil {
		err := r.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(workflowsBucket).Delete([]byte(id))
		})
		if err != nil {
			return &xerrors.IoError{Path: "workflows", Cause: err}
		}
	}
	return nil
}

// Get returns a registered workflow by id.
func (r *Registry) Get(id string) (Workflow, error) {
	r.mu.RLock()
	wf, ok := r.workflows[id]
	r.mu.RUnlock()
	if !ok {
		return Workflow{}, &xerrors.WorkflowNotFoundError{ID: id}
	}
	return wf, nil
}

// List returns every registered workflow, ordered by ID for stable output.
func (r *Registry) List() []Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Workflow, 0, len(r.workflows))
	for _, wf := range r.workflows {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
