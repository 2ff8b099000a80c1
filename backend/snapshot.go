// Copyright (c) 2026 the FutebolStats authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"encoding/json"
	"fmt"
)

// Export/import of the whole store state as one JSON document. This is the
// same document shape as the persisted slot, so an exported file from one
// installation rehydrates cleanly on another.

// ExportState serializes the current state.
func (ms *MatchStore) ExportState() ([]byte, error) {
	state := ms.Snapshot()
	data, err := json.MarshalIndent(&state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// ImportState replaces the whole state with the given document and persists
// it. Unlike store mutations this returns an error, because a malformed
// document is a caller mistake that must be reported, not silently dropped.
func (ms *MatchStore) ImportState(data []byte) error {
	var state StoreState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("unmarshal state: %w", err)
	}
	state.normalize()

	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.state = state
	ms.persistLocked()
	return nil
}
