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

// MatchSummary aggregates the action log of one match into plain counts.
type MatchSummary struct {
	MatchID      string         `json:"matchId"`
	Duration     int            `json:"duration"` // seconds on the game clock
	TotalActions int            `json:"totalActions"`
	ByTeam       map[string]int `json:"byTeam"`     // team name -> count
	ByPlayer     map[string]int `json:"byPlayer"`   // player name -> count
	ByAction     map[string]int `json:"byAction"`   // action name -> count
	ByZone       map[string]int `json:"byZone"`     // zone label -> count
	ByCategory   map[string]int `json:"byCategory"` // offensive/defensive/neutral -> count
}

// BuildMatchSummary counts the match's actions by team, player, action name,
// zone and category. Categories are resolved through the catalog by action
// name; names with no catalog entry count as neutral. Returns nil when there
// is no match.
func BuildMatchSummary(m *Match, catalog []ActionType) *MatchSummary {
	if m == nil {
		return nil
	}

	categories := make(map[string]string, len(catalog))
	for _, at := range catalog {
		categories[at.Name] = at.Category
	}

	s := &MatchSummary{
		MatchID:      m.ID,
		Duration:     m.CurrentTime,
		TotalActions: len(m.Actions),
		ByTeam:       make(map[string]int),
		ByPlayer:     make(map[string]int),
		ByAction:     make(map[string]int),
		ByZone:       make(map[string]int),
		ByCategory:   make(map[string]int),
	}

	for _, a := range m.Actions {
		s.ByTeam[a.TeamName]++
		if a.PlayerName != "" {
			s.ByPlayer[a.PlayerName]++
		}
		s.ByAction[a.ActionName]++
		if a.Zone != "" {
			s.ByZone[a.Zone]++
		}
		cat, ok := categories[a.ActionName]
		if !ok {
			cat = CategoryNeutral
		}
		s.ByCategory[cat]++
	}

	return s
}
