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
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/c2FmZQ/storage"
)

func generateETag(data []byte) string {
	return fmt.Sprintf("\"%x\"", sha256.Sum256(data))
}

// Options represent server options.
type Options struct {
	Addr     string
	Cert     *tls.Certificate
	DataDir  string
	Debug    bool
	Store    *MatchStore
	Storage  *storage.Storage
	Hub      *FeedHub
	Listener net.Listener

	// Auth Options
	UseMockAuth    bool
	AuthCookieName string
	AuthJWKSURL    string

	// Event publishing
	Publisher *EventPublisher
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	hub        *FeedHub
	publisher  *EventPublisher
}

// Shutdown gracefully shuts down the server, the live feed and the event
// publisher. The store needs no flushing: every mutation already persisted.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	s.publisher.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// StartServer starts the web server and registers the API handlers.
func StartServer(opts Options) (*Server, error) {
	handler, hub := NewServerHandler(&opts)

	httpServer := &http.Server{
		Addr:    opts.Addr,
		Handler: handler,
	}
	if opts.Cert != nil {
		httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*opts.Cert},
		}
	}

	go func() {
		var err error
		if opts.Listener != nil {
			if httpServer.TLSConfig != nil {
				log.Printf("Starting HTTPS server on provided listener %s...", opts.Listener.Addr())
				err = httpServer.ServeTLS(opts.Listener, "", "")
			} else {
				log.Printf("Starting HTTP server on provided listener %s...", opts.Listener.Addr())
				err = httpServer.Serve(opts.Listener)
			}
		} else {
			log.Printf("Server starting on %s...", opts.Addr)
			if opts.Cert != nil {
				err = httpServer.ListenAndServeTLS("", "")
			} else {
				err = httpServer.ListenAndServe()
			}
		}
		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{
		httpServer: httpServer,
		hub:        hub,
		publisher:  opts.Publisher,
	}, nil
}

// NewServerHandler creates and configures the HTTP handler for the server,
// wiring the store's notifier to the live feed and the event publisher.
func NewServerHandler(opts *Options) (http.Handler, *FeedHub) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Storage == nil {
		opts.Storage = storage.New(opts.DataDir, nil)
	}

	store := opts.Store
	if store == nil {
		store = NewMatchStore(opts.Storage)
		opts.Store = store
	}
	store.Debug = opts.Debug

	hub := opts.Hub
	if hub == nil {
		hub = NewFeedHub()
	}
	publisher := opts.Publisher

	store.SetNotifier(func(ev StoreEvent) {
		hub.Publish(ev)
		publisher.Publish(ev)
	})

	// openAccess: no auth configured, all callers may record. Otherwise only
	// authenticated users may mutate; reads and the live feed stay open.
	openAccess := opts.AuthJWKSURL == "" && !opts.UseMockAuth

	requireRecorder := func(w http.ResponseWriter, r *http.Request) bool {
		if openAccess {
			return true
		}
		userId := getUserID(r)
		if userId == "" || !isValidEmail(userId) {
			http.Error(w, "Forbidden: Invalid User ID", http.StatusForbidden)
			return false
		}
		if opts.Debug {
			log.Printf("[AUTH] recorder %s on %s", maskEmail(userId), r.URL.Path)
		}
		return true
	}

	metrics := NewMetrics()
	mux := http.NewServeMux()

	// decodePost enforces POST + body limit and decodes the JSON body.
	decodePost := func(w http.ResponseWriter, r *http.Request, v any) bool {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return false
		}
		if !requireRecorder(w, r) {
			return false
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1048576)).Decode(v); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return false
		}
		return true
	}

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	// writeJSONWithETag handles If-None-Match for GET polling clients.
	writeJSONWithETag := func(w http.ResponseWriter, r *http.Request, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			log.Printf("Internal Server Error during JSON Marshal: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		etag := generateETag(data)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}

	// --- Read surface ---

	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		state := store.Snapshot()
		writeJSONWithETag(w, r, &state)
	})

	mux.HandleFunc("/api/match", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		m := store.CurrentMatch()
		if m == nil {
			http.Error(w, "Not Found: no active match", http.StatusNotFound)
			return
		}
		writeJSONWithETag(w, r, m)
	})

	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		state := store.Snapshot()
		summary := BuildMatchSummary(state.CurrentMatch, state.ActionTypes)
		if summary == nil {
			http.Error(w, "Not Found: no active match", http.StatusNotFound)
			return
		}
		writeJSONWithETag(w, r, summary)
	})

	// --- Teams ---

	mux.HandleFunc("/api/add-team", func(w http.ResponseWriter, r *http.Request) {
		var t Team
		if !decodePost(w, r, &t) {
			return
		}
		if err := ValidateTeamInput(t.Name); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		created := store.AddTeam(t)
		writeJSON(w, &created)
	})

	mux.HandleFunc("/api/update-team", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
			TeamPatch
		}
		if !decodePost(w, r, &req) {
			return
		}
		if !isValidUUID(req.ID) {
			http.Error(w, "Bad Request: teamId is missing or invalid", http.StatusBadRequest)
			return
		}
		if req.Name != nil {
			if err := ValidateTeamInput(*req.Name); err != nil {
				http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		store.UpdateTeam(req.ID, req.TeamPatch)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/delete-team", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if !isValidUUID(req.ID) {
			http.Error(w, "Bad Request: teamId is missing or invalid", http.StatusBadRequest)
			return
		}
		store.DeleteTeam(req.ID)
		w.WriteHeader(http.StatusOK)
	})

	// --- Players ---

	mux.HandleFunc("/api/add-player", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TeamID string `json:"teamId"`
			Player
		}
		if !decodePost(w, r, &req) {
			return
		}
		team := findTeam(store.Snapshot().Teams, req.TeamID)
		if team == nil {
			http.Error(w, "Not Found: team not found", http.StatusNotFound)
			return
		}
		if err := ValidatePlayerInput(req.Player, team.Players); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		created := store.AddPlayer(req.TeamID, req.Player)
		if created.ID == "" {
			// Team deleted between snapshot and insert.
			http.Error(w, "Not Found: team not found", http.StatusNotFound)
			return
		}
		writeJSON(w, &created)
	})

	mux.HandleFunc("/api/update-player", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TeamID string `json:"teamId"`
			ID     string `json:"id"`
			PlayerPatch
		}
		if !decodePost(w, r, &req) {
			return
		}
		if !isValidUUID(req.TeamID) || !isValidUUID(req.ID) {
			http.Error(w, "Bad Request: id is missing or invalid", http.StatusBadRequest)
			return
		}
		if req.Number != nil && (*req.Number < MinJerseyNumber || *req.Number > MaxJerseyNumber) {
			http.Error(w, "Bad Request: jersey number out of range", http.StatusBadRequest)
			return
		}
		store.UpdatePlayer(req.TeamID, req.ID, req.PlayerPatch)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/delete-player", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TeamID string `json:"teamId"`
			ID     string `json:"id"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if !isValidUUID(req.TeamID) || !isValidUUID(req.ID) {
			http.Error(w, "Bad Request: id is missing or invalid", http.StatusBadRequest)
			return
		}
		store.DeletePlayer(req.TeamID, req.ID)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/import-players", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TeamID string `json:"teamId"`
			Text   string `json:"text"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if findTeam(store.Snapshot().Teams, req.TeamID) == nil {
			http.Error(w, "Not Found: team not found", http.StatusNotFound)
			return
		}
		added := store.AddPlayersFromText(req.TeamID, req.Text)
		writeJSON(w, map[string]int{"added": added})
	})

	// --- Action types ---

	mux.HandleFunc("/api/add-action-type", func(w http.ResponseWriter, r *http.Request) {
		var at ActionType
		if !decodePost(w, r, &at) {
			return
		}
		if err := ValidateActionTypeInput(at); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		created := store.AddActionType(at)
		writeJSON(w, &created)
	})

	mux.HandleFunc("/api/update-action-type", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
			ActionTypePatch
		}
		if !decodePost(w, r, &req) {
			return
		}
		if !isValidUUID(req.ID) {
			http.Error(w, "Bad Request: id is missing or invalid", http.StatusBadRequest)
			return
		}
		if req.Category != nil {
			switch *req.Category {
			case CategoryOffensive, CategoryDefensive, CategoryNeutral:
			default:
				http.Error(w, "Bad Request: unknown category", http.StatusBadRequest)
				return
			}
		}
		store.UpdateActionType(req.ID, req.ActionTypePatch)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/delete-action-type", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if !isValidUUID(req.ID) {
			http.Error(w, "Bad Request: id is missing or invalid", http.StatusBadRequest)
			return
		}
		store.DeleteActionType(req.ID)
		w.WriteHeader(http.StatusOK)
	})

	// --- Match lifecycle ---

	mux.HandleFunc("/api/start-match", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TeamAID string `json:"teamAId"`
			TeamBID string `json:"teamBId"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if err := ValidateMatchStart(req.TeamAID, req.TeamBID, store.Snapshot()); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		m := store.StartMatch(req.TeamAID, req.TeamBID)
		if m == nil {
			// Catalog changed between validation and start.
			http.Error(w, "Conflict: team selection no longer valid", http.StatusConflict)
			return
		}
		writeJSON(w, m)
	})

	mux.HandleFunc("/api/end-match", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		if !requireRecorder(w, r) {
			return
		}
		store.EndMatch()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/pause-match", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		if !requireRecorder(w, r) {
			return
		}
		store.PauseMatch()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/resume-match", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		if !requireRecorder(w, r) {
			return
		}
		store.ResumeMatch()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/match-time", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Seconds int `json:"seconds"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if req.Seconds < 0 {
			http.Error(w, "Bad Request: negative clock", http.StatusBadRequest)
			return
		}
		store.UpdateMatchTime(req.Seconds)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/possession", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TeamID string `json:"teamId"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		m := store.CurrentMatch()
		if m == nil {
			http.Error(w, "Conflict: no active match", http.StatusConflict)
			return
		}
		if err := ValidatePossession(req.TeamID, m); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		store.SetPossession(req.TeamID)
		w.WriteHeader(http.StatusOK)
	})

	// --- Actions ---

	mux.HandleFunc("/api/add-action", func(w http.ResponseWriter, r *http.Request) {
		var a GameAction
		if !decodePost(w, r, &a) {
			return
		}
		m := store.CurrentMatch()
		if m == nil {
			http.Error(w, "Conflict: no active match", http.StatusConflict)
			return
		}
		if err := ValidateActionInput(a, m); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		fillActionNames(&a, m)
		recorded := store.AddAction(a)
		if recorded == nil {
			http.Error(w, "Conflict: no active match", http.StatusConflict)
			return
		}
		writeJSON(w, recorded)
	})

	mux.HandleFunc("/api/update-action", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
			ActionPatch
		}
		if !decodePost(w, r, &req) {
			return
		}
		if !isValidUUID(req.ID) {
			http.Error(w, "Bad Request: actionId is missing or invalid", http.StatusBadRequest)
			return
		}
		store.UpdateAction(req.ID, req.ActionPatch)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/delete-action", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if !isValidUUID(req.ID) {
			http.Error(w, "Bad Request: actionId is missing or invalid", http.StatusBadRequest)
			return
		}
		store.DeleteAction(req.ID)
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/set-app-state", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			State string `json:"state"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if req.State != AppStateMenu && req.State != AppStatePlaying {
			http.Error(w, "Bad Request: unknown app state", http.StatusBadRequest)
			return
		}
		store.SetAppState(req.State)
		w.WriteHeader(http.StatusOK)
	})

	// --- Export / import ---

	mux.HandleFunc("/api/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		data, err := store.ExportState()
		if err != nil {
			log.Printf("Internal Server Error during export: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="futebolstats-export.json"`)
		w.Write(data)
	})

	mux.HandleFunc("/api/import", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
			return
		}
		if !requireRecorder(w, r) {
			return
		}
		var raw json.RawMessage
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 20*1048576)).Decode(&raw); err != nil {
			http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
			return
		}
		if err := store.ImportState(raw); err != nil {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// --- Live feed + monitoring ---

	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeFeedWS(hub, store, w, r)
	})

	mux.HandleFunc("/api/statusz", metrics.handleStatusz)

	handler := http.Handler(mux)
	if opts.UseMockAuth {
		handler = mockAuthMiddleware(handler)
	} else {
		handler = jwtAuthMiddleware(*opts, handler)
	}
	handler = loggingMiddleware(handler)
	handler = securityMiddleware(handler)
	handler = metricsMiddleware(metrics, handler)

	return handler, hub
}

// findTeam returns the team with the given id from a snapshot, or nil.
func findTeam(teams []Team, id string) *Team {
	for i := range teams {
		if teams[i].ID == id {
			return &teams[i]
		}
	}
	return nil
}

// fillActionNames denormalizes team and player display names into the action
// at recording time, so later renames do not rewrite history.
func fillActionNames(a *GameAction, m *Match) {
	team := &m.TeamA
	if a.TeamID == m.TeamB.ID {
		team = &m.TeamB
	}
	if a.TeamName == "" {
		a.TeamName = team.Name
	}
	if a.PlayerID != "" && a.PlayerName == "" {
		for _, p := range team.Players {
			if p.ID == a.PlayerID {
				a.PlayerName = p.Name
				break
			}
		}
	}
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "private, no-cache, no-transform")
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
