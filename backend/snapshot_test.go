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
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

func TestExportImportRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	teamA := store.AddTeam(Team{Name: "Bahia", Players: []Player{{Name: "Everaldo", Number: 9}}})
	teamB := store.AddTeam(Team{Name: "Vitória"})
	if m := store.StartMatch(teamA.ID, teamB.ID); m == nil {
		t.Fatal("StartMatch failed")
	}
	store.UpdateMatchTime(300)
	store.AddAction(GameAction{TeamID: teamA.ID, TeamName: "Bahia", ActionName: "Gol", Minute: 5})

	exported, err := store.ExportState()
	if err != nil {
		t.Fatalf("ExportState failed: %v", err)
	}

	// Import into a fresh store on its own data dir.
	other, _ := newTestStore(t)
	if err := other.ImportState(exported); err != nil {
		t.Fatalf("ImportState failed: %v", err)
	}

	reexported, err := other.ExportState()
	if err != nil {
		t.Fatalf("Re-export failed: %v", err)
	}

	if string(exported) != string(reexported) {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(exported)),
			B:        difflib.SplitLines(string(reexported)),
			FromFile: "Exported",
			ToFile:   "Reimported",
			Context:  3,
		})
		t.Errorf("Round trip mismatch:\n%s", diff)
	}

	m := other.CurrentMatch()
	if m == nil || m.CurrentTime != 300 || len(m.Actions) != 1 {
		t.Errorf("Imported match wrong: %+v", m)
	}
	if other.AppState() != AppStatePlaying {
		t.Errorf("AppState = %q, want playing", other.AppState())
	}
}

func TestImportStateRejectsGarbage(t *testing.T) {
	store, _ := newTestStore(t)
	team := store.AddTeam(Team{Name: "Fortaleza"})

	if err := store.ImportState([]byte("{not json")); err == nil {
		t.Error("Malformed document accepted")
	}
	// State untouched after the failed import.
	if findTeam(store.Snapshot().Teams, team.ID) == nil {
		t.Error("Failed import mutated state")
	}
}

func TestImportStateNormalizesSparseDocument(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.ImportState([]byte(`{"teams":null}`)); err != nil {
		t.Fatalf("ImportState failed: %v", err)
	}

	state := store.Snapshot()
	if state.Teams == nil || len(state.Teams) != 0 {
		t.Errorf("Teams not normalized: %+v", state.Teams)
	}
	if len(state.ActionTypes) != len(defaultActionTypes) {
		t.Errorf("Missing catalog not re-seeded: %d entries", len(state.ActionTypes))
	}
	if state.AppState != AppStateMenu {
		t.Errorf("AppState = %q, want menu", state.AppState)
	}
	if state.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", state.SchemaVersion, CurrentSchemaVersion)
	}
}
