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
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/c2FmZQ/storage"
)

func newTestHandler(t *testing.T) (http.Handler, *MatchStore) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "http_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	s := storage.New(tempDir, nil)
	opts := &Options{
		Storage:     s,
		DataDir:     tempDir,
		UseMockAuth: true,
	}
	handler, _ := NewServerHandler(opts)
	return handler, opts.Store
}

func TestHTTPHandlers(t *testing.T) {
	handler, store := newTestHandler(t)
	userId := "recorder@example.com"

	makeRequest := func(method, url, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, url, strings.NewReader(body))
		req.AddCookie(&http.Cookie{Name: "mock_auth_user", Value: userId})
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	var teamAID, teamBID string

	t.Run("AddTeam", func(t *testing.T) {
		w := makeRequest("POST", "/api/add-team", `{"name":"Flamengo","primaryColor":"#c52613"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var team Team
		if err := json.Unmarshal(w.Body.Bytes(), &team); err != nil {
			t.Fatalf("Bad response body: %v", err)
		}
		if team.ID == "" || team.Name != "Flamengo" {
			t.Errorf("Unexpected team: %+v", team)
		}
		teamAID = team.ID

		w = makeRequest("POST", "/api/add-team", `{"name":"Vasco"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		var teamB Team
		json.Unmarshal(w.Body.Bytes(), &teamB)
		teamBID = teamB.ID
	})

	t.Run("AddTeamRejectsBlankName", func(t *testing.T) {
		w := makeRequest("POST", "/api/add-team", `{"name":"   "}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("AddTeamRejectsAnonymous", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/add-team", strings.NewReader(`{"name":"Ghosts"}`))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("Expected 403 without auth cookie, got %d", w.Code)
		}
	})

	t.Run("AddPlayer", func(t *testing.T) {
		body := fmt.Sprintf(`{"teamId":"%s","name":"Gabigol","number":10,"position":"Atacante"}`, teamAID)
		w := makeRequest("POST", "/api/add-player", body)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}

		// Duplicate jersey number is rejected.
		body = fmt.Sprintf(`{"teamId":"%s","name":"Pedro","number":10}`, teamAID)
		if w := makeRequest("POST", "/api/add-player", body); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for duplicate number, got %d", w.Code)
		}

		// Unknown team is 404.
		body = `{"teamId":"99999999-9999-4999-8999-999999999999","name":"Ghost","number":1}`
		if w := makeRequest("POST", "/api/add-player", body); w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for unknown team, got %d", w.Code)
		}
	})

	t.Run("ImportPlayers", func(t *testing.T) {
		body := fmt.Sprintf(`{"teamId":"%s","text":"1,Rossi,Goleiro\n2,Varela"}`, teamAID)
		w := makeRequest("POST", "/api/import-players", body)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp map[string]int
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["added"] != 2 {
			t.Errorf("added = %d, want 2", resp["added"])
		}
	})

	t.Run("StartMatchValidation", func(t *testing.T) {
		if w := makeRequest("POST", "/api/start-match", fmt.Sprintf(`{"teamAId":"%s","teamBId":"%s"}`, teamAID, teamAID)); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for identical teams, got %d", w.Code)
		}
		if w := makeRequest("POST", "/api/start-match", fmt.Sprintf(`{"teamAId":"%s"}`, teamAID)); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for missing selection, got %d", w.Code)
		}
		if store.CurrentMatch() != nil {
			t.Error("Invalid start created a match")
		}
	})

	t.Run("MatchFlow", func(t *testing.T) {
		w := makeRequest("POST", "/api/start-match", fmt.Sprintf(`{"teamAId":"%s","teamBId":"%s"}`, teamAID, teamBID))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var m Match
		json.Unmarshal(w.Body.Bytes(), &m)
		if m.TeamA.ID != teamAID || m.TeamB.ID != teamBID {
			t.Errorf("Match teams wrong: %+v", m)
		}

		if w := makeRequest("POST", "/api/pause-match", ""); w.Code != http.StatusOK {
			t.Errorf("pause: %d", w.Code)
		}
		if w := makeRequest("POST", "/api/resume-match", ""); w.Code != http.StatusOK {
			t.Errorf("resume: %d", w.Code)
		}
		if w := makeRequest("POST", "/api/match-time", `{"seconds":90}`); w.Code != http.StatusOK {
			t.Errorf("match-time: %d", w.Code)
		}
		if w := makeRequest("POST", "/api/match-time", `{"seconds":-1}`); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for negative clock, got %d", w.Code)
		}
		if w := makeRequest("POST", "/api/possession", fmt.Sprintf(`{"teamId":"%s"}`, teamAID)); w.Code != http.StatusOK {
			t.Errorf("possession: %d", w.Code)
		}
		if w := makeRequest("POST", "/api/possession", `{"teamId":"99999999-9999-4999-8999-999999999999"}`); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for foreign possession, got %d", w.Code)
		}
	})

	t.Run("AddAction", func(t *testing.T) {
		body := fmt.Sprintf(`{"teamId":"%s","actionName":"Gol","zone":"area","minute":1,"second":30}`, teamAID)
		w := makeRequest("POST", "/api/add-action", body)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var a GameAction
		json.Unmarshal(w.Body.Bytes(), &a)
		if a.ID == "" || a.Timestamp == 0 {
			t.Errorf("Action not stamped: %+v", a)
		}
		// Team name filled from the match snapshot.
		if a.TeamName != "Flamengo" {
			t.Errorf("TeamName = %q, want Flamengo", a.TeamName)
		}

		body = fmt.Sprintf(`{"teamId":"%s","actionName":""}`, teamAID)
		if w := makeRequest("POST", "/api/add-action", body); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for blank action name, got %d", w.Code)
		}
	})

	t.Run("Summary", func(t *testing.T) {
		w := makeRequest("GET", "/api/summary", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		var s MatchSummary
		json.Unmarshal(w.Body.Bytes(), &s)
		if s.TotalActions != 1 || s.ByTeam["Flamengo"] != 1 {
			t.Errorf("Unexpected summary: %+v", s)
		}
	})

	t.Run("StateETag", func(t *testing.T) {
		w := makeRequest("GET", "/api/state", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		etag := w.Header().Get("ETag")
		if etag == "" {
			t.Fatal("No ETag header")
		}

		req := httptest.NewRequest("GET", "/api/state", nil)
		req.Header.Set("If-None-Match", etag)
		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, req)
		if w2.Code != http.StatusNotModified {
			t.Errorf("Expected 304, got %d", w2.Code)
		}
	})

	t.Run("EndMatch", func(t *testing.T) {
		if w := makeRequest("POST", "/api/end-match", ""); w.Code != http.StatusOK {
			t.Fatalf("end-match: %d", w.Code)
		}
		if w := makeRequest("GET", "/api/match", ""); w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 after end, got %d", w.Code)
		}
		if w := makeRequest("GET", "/api/summary", ""); w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 summary after end, got %d", w.Code)
		}
		// Action registration now conflicts.
		body := fmt.Sprintf(`{"teamId":"%s","actionName":"Gol"}`, teamAID)
		if w := makeRequest("POST", "/api/add-action", body); w.Code != http.StatusConflict {
			t.Errorf("Expected 409 without match, got %d", w.Code)
		}
	})

	t.Run("ExportImport", func(t *testing.T) {
		w := makeRequest("GET", "/api/export", "")
		if w.Code != http.StatusOK {
			t.Fatalf("export: %d", w.Code)
		}
		exported := w.Body.String()

		if w := makeRequest("POST", "/api/import", exported); w.Code != http.StatusOK {
			t.Errorf("import: %d: %s", w.Code, w.Body.String())
		}
		if w := makeRequest("POST", "/api/import", "{broken"); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for garbage import, got %d", w.Code)
		}
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		if w := makeRequest("GET", "/api/add-team", ""); w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", w.Code)
		}
		if w := makeRequest("POST", "/api/state", "{}"); w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", w.Code)
		}
	})

	t.Run("Statusz", func(t *testing.T) {
		w := makeRequest("GET", "/api/statusz", "")
		if w.Code != http.StatusOK {
			t.Fatalf("statusz: %d", w.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Bad statusz body: %v", err)
		}
		if _, ok := resp["requests"]; !ok {
			t.Errorf("statusz missing request count: %v", resp)
		}
	})

	t.Run("SecurityHeaders", func(t *testing.T) {
		w := makeRequest("GET", "/api/state", "")
		if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("X-Content-Type-Options = %q", got)
		}
		if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "no-cache") {
			t.Errorf("Cache-Control = %q", got)
		}
	})
}

func TestOpenAccessWithoutAuth(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "openaccess_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// No JWKS URL and no mock auth: single-recorder deployment, mutations are
	// open.
	opts := &Options{Storage: storage.New(tempDir, nil), DataDir: tempDir}
	handler, _ := NewServerHandler(opts)

	req := httptest.NewRequest("POST", "/api/add-team", strings.NewReader(`{"name":"Avaí"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 in open mode, got %d: %s", w.Code, w.Body.String())
	}
}
