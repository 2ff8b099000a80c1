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
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// The store itself never validates or errors (its operations are silent
// no-ops on bad references); the checks below are the caller-side contract
// the HTTP layer enforces before invoking store operations.

// uuidRegex is a regex for standard UUIDs (8-4-4-4-12 hex digits)
var uuidRegex = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

// isValidUUID checks if the string is a valid UUID.
func isValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// isValidEmail checks if the string is a valid email address.
func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// validateStringLen checks if the string length is within the limit.
func validateStringLen(s string, max int, name string) error {
	if len(s) > max {
		return fmt.Errorf("%s too long (max %d chars)", name, max)
	}
	return nil
}

// ValidateTeamInput checks a team name before it reaches the store.
func ValidateTeamInput(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("missing team name")
	}
	return validateStringLen(name, 50, "team name")
}

// ValidatePlayerInput checks player fields before they reach the store.
// Number uniqueness is checked against the target team's current roster.
func ValidatePlayerInput(p Player, roster []Player) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("missing player name")
	}
	if err := validateStringLen(p.Name, 50, "player name"); err != nil {
		return err
	}
	if p.Number < MinJerseyNumber || p.Number > MaxJerseyNumber {
		return fmt.Errorf("jersey number %d outside %d-%d", p.Number, MinJerseyNumber, MaxJerseyNumber)
	}
	for _, other := range roster {
		if other.ID != p.ID && other.Number == p.Number {
			return fmt.Errorf("jersey number %d already used by %s", p.Number, other.Name)
		}
	}
	return validateStringLen(p.Position, 30, "position")
}

// ValidateMatchStart checks both team selections are present, distinct and
// known before StartMatch is invoked.
func ValidateMatchStart(teamAID, teamBID string, state StoreState) error {
	if teamAID == "" || teamBID == "" {
		return fmt.Errorf("both team selections are required")
	}
	if teamAID == teamBID {
		return fmt.Errorf("team selections must be distinct")
	}
	var foundA, foundB bool
	for _, t := range state.Teams {
		if t.ID == teamAID {
			foundA = true
		}
		if t.ID == teamBID {
			foundB = true
		}
	}
	if !foundA || !foundB {
		return fmt.Errorf("unknown team selection")
	}
	return nil
}

// ValidateActionInput checks the required action-registration fields before
// AddAction is invoked. The team must be one of the two match teams.
func ValidateActionInput(a GameAction, m *Match) error {
	if m == nil {
		return fmt.Errorf("no active match")
	}
	if strings.TrimSpace(a.ActionName) == "" {
		return fmt.Errorf("missing action name")
	}
	if err := validateStringLen(a.ActionName, 50, "action name"); err != nil {
		return err
	}
	if a.TeamID != m.TeamA.ID && a.TeamID != m.TeamB.ID {
		return fmt.Errorf("team %s is not part of the current match", a.TeamID)
	}
	if a.Minute < 0 || a.Second < 0 || a.Second > 59 {
		return fmt.Errorf("invalid match clock %d:%02d", a.Minute, a.Second)
	}
	if err := validateStringLen(a.Zone, 40, "zone"); err != nil {
		return err
	}
	return validateStringLen(a.Details, 500, "details")
}

// ValidateActionTypeInput checks a catalog entry before it reaches the store.
func ValidateActionTypeInput(at ActionType) error {
	if strings.TrimSpace(at.Name) == "" {
		return fmt.Errorf("missing action type name")
	}
	if err := validateStringLen(at.Name, 50, "action type name"); err != nil {
		return err
	}
	switch at.Category {
	case CategoryOffensive, CategoryDefensive, CategoryNeutral:
		return nil
	default:
		return fmt.Errorf("unknown category: %s", at.Category)
	}
}

// ValidatePossession checks the possession target against the current match.
// An empty id is valid and clears possession.
func ValidatePossession(teamID string, m *Match) error {
	if m == nil {
		return fmt.Errorf("no active match")
	}
	if teamID == "" || teamID == m.TeamA.ID || teamID == m.TeamB.ID {
		return nil
	}
	return fmt.Errorf("team %s is not part of the current match", teamID)
}
