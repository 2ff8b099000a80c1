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
	"log"
	"os"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/google/uuid"
)

// stateFile is the single storage slot holding the whole application state.
const stateFile = "matchstate.json"

// Player represents one member of a team roster.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Number   int    `json:"number"`
	Position string `json:"position"`
	Role     string `json:"role,omitempty"`
}

// Team represents a team and its roster. Players belong to exactly one team.
type Team struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	PrimaryColor   string   `json:"primaryColor,omitempty"`
	SecondaryColor string   `json:"secondaryColor,omitempty"`
	Players        []Player `json:"players"`
}

func (t *Team) normalize() {
	if t.Players == nil {
		t.Players = make([]Player, 0)
	}
}

// ActionType is a configurable catalog entry describing a kind of recordable
// match event.
type ActionType struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Color    string `json:"color,omitempty"`
	Category string `json:"category"` // offensive|defensive|neutral
}

// GameAction is one timestamped occurrence of an action during a match.
// PlayerName and TeamName are copies taken at recording time: renaming a team
// or player later does not rewrite history.
type GameAction struct {
	ID         string `json:"id"`
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	TeamID     string `json:"teamId"`
	TeamName   string `json:"teamName"`
	ActionName string `json:"actionName"`
	Zone       string `json:"zone,omitempty"`
	Timestamp  int64  `json:"timestamp"` // Unix millis at recording time
	Minute     int    `json:"minute"`
	Second     int    `json:"second"`
	Details    string `json:"details,omitempty"`
}

// Match is the single active match. TeamA and TeamB are full snapshots taken
// at start time; later roster edits do not propagate into them.
type Match struct {
	ID          string       `json:"id"`
	TeamA       Team         `json:"teamA"`
	TeamB       Team         `json:"teamB"`
	StartTime   int64        `json:"startTime"` // Unix millis
	Actions     []GameAction `json:"actions"`
	IsActive    bool         `json:"isActive"`
	IsPaused    bool         `json:"isPaused"`
	CurrentTime int          `json:"currentTime"`          // seconds on the game clock
	Possession  string       `json:"possession,omitempty"` // team id, empty when unset
}

func (m *Match) normalize() {
	if m.Actions == nil {
		m.Actions = make([]GameAction, 0)
	}
}

// StoreState is the full persisted application state.
type StoreState struct {
	SchemaVersion int          `json:"schemaVersion"`
	Teams         []Team       `json:"teams"`
	ActionTypes   []ActionType `json:"actionTypes"`
	CurrentMatch  *Match       `json:"currentMatch,omitempty"`
	AppState      string       `json:"appState"`
}

// normalize fills defaults for fields missing from a persisted snapshot.
// A nil ActionTypes slice means the catalog was never written, so it gets the
// seed; an empty one is a user choice and is kept.
func (s *StoreState) normalize() {
	if s.SchemaVersion == 0 {
		s.SchemaVersion = CurrentSchemaVersion
	}
	if s.Teams == nil {
		s.Teams = make([]Team, 0)
	}
	for i := range s.Teams {
		s.Teams[i].normalize()
	}
	if s.ActionTypes == nil {
		s.ActionTypes = seedActionTypes()
	}
	if s.CurrentMatch != nil {
		s.CurrentMatch.normalize()
	}
	if s.AppState != AppStatePlaying {
		s.AppState = AppStateMenu
	}
	if s.CurrentMatch == nil {
		s.AppState = AppStateMenu
	}
}

func seedActionTypes() []ActionType {
	types := make([]ActionType, 0, len(defaultActionTypes))
	for _, at := range defaultActionTypes {
		at.ID = uuid.New().String()
		types = append(types, at)
	}
	return types
}

// MatchStore is the single source of truth for rosters, the active match, the
// action-type catalog and the app mode. Every mutation is written back to one
// storage slot; persistence failures are logged and never surfaced to callers.
//
// Mutating operations never return errors: missing ids and missing-match
// conditions degrade to silent no-ops. Input validation (non-empty names,
// jersey ranges, distinct team selections) is the caller's responsibility.
type MatchStore struct {
	Debug bool

	storage *storage.Storage

	mu    sync.Mutex
	state StoreState

	notify func(StoreEvent)
}

// NewMatchStore creates a MatchStore, rehydrating state from the storage slot
// if a snapshot exists. Missing fields in an old snapshot are defaulted.
func NewMatchStore(s *storage.Storage) *MatchStore {
	ms := &MatchStore{storage: s}

	var st StoreState
	if err := s.ReadDataFile(stateFile, &st); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("MatchStore: could not rehydrate state, starting fresh: %v", err)
		}
		st = StoreState{}
	}
	st.normalize()
	ms.state = st
	return ms
}

// SetNotifier installs a callback invoked after every successful mutation.
// The callback runs while the store lock is held and must not block.
func (ms *MatchStore) SetNotifier(fn func(StoreEvent)) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.notify = fn
}

// persistLocked writes the current state to the storage slot. Fire-and-forget:
// a failed write leaves the in-memory state authoritative until the next one.
func (ms *MatchStore) persistLocked() {
	if err := ms.storage.SaveDataFile(stateFile, &ms.state); err != nil {
		log.Printf("MatchStore: failed to persist state: %v", err)
	}
}

func (ms *MatchStore) emitLocked(ev StoreEvent) {
	if ms.notify != nil {
		ms.notify(ev)
	}
}

// Snapshot returns a deep copy of the full state.
func (ms *MatchStore) Snapshot() StoreState {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return cloneState(ms.state)
}

// CurrentMatch returns a deep copy of the active match, or nil.
func (ms *MatchStore) CurrentMatch() *Match {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.state.CurrentMatch == nil {
		return nil
	}
	m := cloneMatch(*ms.state.CurrentMatch)
	return &m
}

// AppState returns the current application mode.
func (ms *MatchStore) AppState() string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.state.AppState
}

// --- Teams ---

// AddTeam appends a new team with a fresh id. Supplied players are kept;
// players without an id get one.
func (ms *MatchStore) AddTeam(t Team) Team {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t.ID = uuid.New().String()
	t.normalize()
	for i := range t.Players {
		if t.Players[i].ID == "" {
			t.Players[i].ID = uuid.New().String()
		}
	}
	ms.state.Teams = append(ms.state.Teams, t)
	ms.persistLocked()
	return cloneTeam(t)
}

// TeamPatch carries partial team fields; nil fields are left untouched.
type TeamPatch struct {
	Name           *string `json:"name,omitempty"`
	PrimaryColor   *string `json:"primaryColor,omitempty"`
	SecondaryColor *string `json:"secondaryColor,omitempty"`
}

// UpdateTeam merges the patch into the matching team. No-op if id not found.
func (ms *MatchStore) UpdateTeam(id string, patch TeamPatch) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t := ms.findTeamLocked(id)
	if t == nil {
		return
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.PrimaryColor != nil {
		t.PrimaryColor = *patch.PrimaryColor
	}
	if patch.SecondaryColor != nil {
		t.SecondaryColor = *patch.SecondaryColor
	}
	ms.persistLocked()
}

// DeleteTeam removes the team from the catalog. A match in progress keeps its
// embedded snapshot; this does not cascade.
func (ms *MatchStore) DeleteTeam(id string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for i := range ms.state.Teams {
		if ms.state.Teams[i].ID == id {
			ms.state.Teams = append(ms.state.Teams[:i], ms.state.Teams[i+1:]...)
			ms.persistLocked()
			return
		}
	}
}

func (ms *MatchStore) findTeamLocked(id string) *Team {
	for i := range ms.state.Teams {
		if ms.state.Teams[i].ID == id {
			return &ms.state.Teams[i]
		}
	}
	return nil
}

// --- Players ---

// AddPlayer appends a player to one team's roster. The returned Player has a
// zero ID if the team does not exist.
func (ms *MatchStore) AddPlayer(teamID string, p Player) Player {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t := ms.findTeamLocked(teamID)
	if t == nil {
		return Player{}
	}
	p.ID = uuid.New().String()
	t.Players = append(t.Players, p)
	ms.persistLocked()
	return p
}

// PlayerPatch carries partial player fields; nil fields are left untouched.
type PlayerPatch struct {
	Name     *string `json:"name,omitempty"`
	Number   *int    `json:"number,omitempty"`
	Position *string `json:"position,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// UpdatePlayer merges the patch into one player of one team. No-op if either
// id is not found.
func (ms *MatchStore) UpdatePlayer(teamID, playerID string, patch PlayerPatch) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t := ms.findTeamLocked(teamID)
	if t == nil {
		return
	}
	for i := range t.Players {
		if t.Players[i].ID != playerID {
			continue
		}
		p := &t.Players[i]
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Number != nil {
			p.Number = *patch.Number
		}
		if patch.Position != nil {
			p.Position = *patch.Position
		}
		if patch.Role != nil {
			p.Role = *patch.Role
		}
		ms.persistLocked()
		return
	}
}

// DeletePlayer removes a player from one team's roster. No-op if not found.
func (ms *MatchStore) DeletePlayer(teamID, playerID string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t := ms.findTeamLocked(teamID)
	if t == nil {
		return
	}
	for i := range t.Players {
		if t.Players[i].ID == playerID {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			ms.persistLocked()
			return
		}
	}
}

// AddPlayersFromText parses the line-oriented bulk import format and appends
// the parsed players to the team's roster. Existing players are kept; number
// uniqueness is not checked here. Returns the number of players added.
func (ms *MatchStore) AddPlayersFromText(teamID, text string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t := ms.findTeamLocked(teamID)
	if t == nil {
		return 0
	}
	players := ParseRoster(text, len(t.Players))
	if len(players) == 0 {
		return 0
	}
	for i := range players {
		players[i].ID = uuid.New().String()
	}
	t.Players = append(t.Players, players...)
	ms.persistLocked()
	return len(players)
}

// --- Match lifecycle ---

// StartMatch creates a new match embedding snapshots of both teams and
// switches the app to playing mode. It is a silent no-op when either lookup
// fails or both ids are the same; any previous match is discarded.
func (ms *MatchStore) StartMatch(teamAID, teamBID string) *Match {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if teamAID == teamBID {
		return nil
	}
	teamA := ms.findTeamLocked(teamAID)
	teamB := ms.findTeamLocked(teamBID)
	if teamA == nil || teamB == nil {
		return nil
	}

	m := Match{
		ID:        uuid.New().String(),
		TeamA:     cloneTeam(*teamA),
		TeamB:     cloneTeam(*teamB),
		StartTime: time.Now().UnixMilli(),
		Actions:   make([]GameAction, 0),
		IsActive:  true,
	}
	ms.state.CurrentMatch = &m
	ms.state.AppState = AppStatePlaying
	ms.persistLocked()

	started := cloneMatch(m)
	ms.emitLocked(StoreEvent{Type: EventMatchStarted, Match: &started})
	return &started
}

// EndMatch unconditionally discards the current match and returns to the
// menu. The store keeps no archive.
func (ms *MatchStore) EndMatch() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.state.CurrentMatch = nil
	ms.state.AppState = AppStateMenu
	ms.persistLocked()
	ms.emitLocked(StoreEvent{Type: EventMatchEnded})
}

// PauseMatch marks the current match paused. No-op if no match.
func (ms *MatchStore) PauseMatch() {
	ms.setPaused(true)
}

// ResumeMatch clears the paused flag. No-op if no match.
func (ms *MatchStore) ResumeMatch() {
	ms.setPaused(false)
}

func (ms *MatchStore) setPaused(paused bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.state.CurrentMatch == nil {
		return
	}
	ms.state.CurrentMatch.IsPaused = paused
	ms.persistLocked()
	ev := EventMatchResumed
	if paused {
		ev = EventMatchPaused
	}
	ms.emitLocked(StoreEvent{Type: ev})
}

// UpdateMatchTime overwrites the game clock. The store runs no clock of its
// own; an external timer calls this roughly once per second while unpaused.
func (ms *MatchStore) UpdateMatchTime(seconds int) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.state.CurrentMatch == nil {
		return
	}
	ms.state.CurrentMatch.CurrentTime = seconds
	ms.persistLocked()
	ms.emitLocked(StoreEvent{Type: EventClockUpdated, Seconds: seconds})
}

// SetPossession overwrites the possession indicator with a team id, or clears
// it when given an empty string. No-op if no match.
func (ms *MatchStore) SetPossession(teamID string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.state.CurrentMatch == nil {
		return
	}
	ms.state.CurrentMatch.Possession = teamID
	ms.persistLocked()
	ms.emitLocked(StoreEvent{Type: EventPossessionChanged, Possession: teamID})
}

// --- Actions ---

// AddAction assigns a fresh id and timestamp and appends the action to the
// current match. Returns nil without mutating when no match is active.
func (ms *MatchStore) AddAction(a GameAction) *GameAction {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.state.CurrentMatch == nil {
		return nil
	}
	a.ID = uuid.New().String()
	a.Timestamp = time.Now().UnixMilli()
	ms.state.CurrentMatch.Actions = append(ms.state.CurrentMatch.Actions, a)
	ms.persistLocked()

	recorded := a
	ms.emitLocked(StoreEvent{Type: EventActionAdded, Action: &recorded})
	return &recorded
}

// ActionPatch carries partial action fields; nil fields are left untouched.
type ActionPatch struct {
	PlayerID   *string `json:"playerId,omitempty"`
	PlayerName *string `json:"playerName,omitempty"`
	ActionName *string `json:"actionName,omitempty"`
	Zone       *string `json:"zone,omitempty"`
	Minute     *int    `json:"minute,omitempty"`
	Second     *int    `json:"second,omitempty"`
	Details    *string `json:"details,omitempty"`
}

// UpdateAction merges the patch into the matching action of the current
// match. No-op if there is no match or the id is absent.
func (ms *MatchStore) UpdateAction(actionID string, patch ActionPatch) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.state.CurrentMatch == nil {
		return
	}
	for i := range ms.state.CurrentMatch.Actions {
		if ms.state.CurrentMatch.Actions[i].ID != actionID {
			continue
		}
		a := &ms.state.CurrentMatch.Actions[i]
		if patch.PlayerID != nil {
			a.PlayerID = *patch.PlayerID
		}
		if patch.PlayerName != nil {
			a.PlayerName = *patch.PlayerName
		}
		if patch.ActionName != nil {
			a.ActionName = *patch.ActionName
		}
		if patch.Zone != nil {
			a.Zone = *patch.Zone
		}
		if patch.Minute != nil {
			a.Minute = *patch.Minute
		}
		if patch.Second != nil {
			a.Second = *patch.Second
		}
		if patch.Details != nil {
			a.Details = *patch.Details
		}
		ms.persistLocked()
		updated := *a
		ms.emitLocked(StoreEvent{Type: EventActionUpdated, Action: &updated})
		return
	}
}

// DeleteAction removes the matching action from the current match. No-op if
// there is no match or the id is absent.
func (ms *MatchStore) DeleteAction(actionID string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.state.CurrentMatch == nil {
		return
	}
	actions := ms.state.CurrentMatch.Actions
	for i := range actions {
		if actions[i].ID == actionID {
			ms.state.CurrentMatch.Actions = append(actions[:i], actions[i+1:]...)
			ms.persistLocked()
			ms.emitLocked(StoreEvent{Type: EventActionDeleted, ActionID: actionID})
			return
		}
	}
}

// --- Action types ---

// AddActionType appends a catalog entry with a fresh id.
func (ms *MatchStore) AddActionType(at ActionType) ActionType {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	at.ID = uuid.New().String()
	ms.state.ActionTypes = append(ms.state.ActionTypes, at)
	ms.persistLocked()
	return at
}

// ActionTypePatch carries partial catalog fields; nil fields are left
// untouched.
type ActionTypePatch struct {
	Name     *string `json:"name,omitempty"`
	Icon     *string `json:"icon,omitempty"`
	Color    *string `json:"color,omitempty"`
	Category *string `json:"category,omitempty"`
}

// UpdateActionType merges the patch into the matching catalog entry. No-op if
// the id is absent.
func (ms *MatchStore) UpdateActionType(id string, patch ActionTypePatch) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for i := range ms.state.ActionTypes {
		if ms.state.ActionTypes[i].ID != id {
			continue
		}
		at := &ms.state.ActionTypes[i]
		if patch.Name != nil {
			at.Name = *patch.Name
		}
		if patch.Icon != nil {
			at.Icon = *patch.Icon
		}
		if patch.Color != nil {
			at.Color = *patch.Color
		}
		if patch.Category != nil {
			at.Category = *patch.Category
		}
		ms.persistLocked()
		return
	}
}

// DeleteActionType removes a catalog entry. No-op if the id is absent.
func (ms *MatchStore) DeleteActionType(id string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for i := range ms.state.ActionTypes {
		if ms.state.ActionTypes[i].ID == id {
			ms.state.ActionTypes = append(ms.state.ActionTypes[:i], ms.state.ActionTypes[i+1:]...)
			ms.persistLocked()
			return
		}
	}
}

// SetAppState overwrites the application mode. Direct setter, no validation.
func (ms *MatchStore) SetAppState(mode string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.state.AppState = mode
	ms.persistLocked()
}

// --- Deep copies ---

func cloneTeam(t Team) Team {
	players := make([]Player, len(t.Players))
	copy(players, t.Players)
	t.Players = players
	return t
}

func cloneMatch(m Match) Match {
	m.TeamA = cloneTeam(m.TeamA)
	m.TeamB = cloneTeam(m.TeamB)
	actions := make([]GameAction, len(m.Actions))
	copy(actions, m.Actions)
	m.Actions = actions
	return m
}

func cloneState(s StoreState) StoreState {
	teams := make([]Team, len(s.Teams))
	for i, t := range s.Teams {
		teams[i] = cloneTeam(t)
	}
	s.Teams = teams

	types := make([]ActionType, len(s.ActionTypes))
	copy(types, s.ActionTypes)
	s.ActionTypes = types

	if s.CurrentMatch != nil {
		m := cloneMatch(*s.CurrentMatch)
		s.CurrentMatch = &m
	}
	return s
}
