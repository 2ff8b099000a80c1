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
	"strconv"
	"strings"
)

// ParseRoster parses the line-oriented bulk player import format.
//
// One player per line, fields comma-separated and trimmed, positional:
//
//	number,name,position[,role]
//
// The format is deliberately permissive, not strict:
//   - a number that fails to parse gets a sequential fallback starting after
//     rosterSize (the size of the roster being appended to);
//   - a missing position defaults to DefaultPosition, a missing role to
//     DefaultRole;
//   - a single-field line is taken as a name-only entry;
//   - blank lines are skipped.
//
// Parsed players carry no IDs; the store assigns them on insert.
func ParseRoster(text string, rosterSize int) []Player {
	var players []Player
	nextNumber := rosterSize + 1

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		p := Player{
			Position: DefaultPosition,
			Role:     DefaultRole,
		}

		if len(fields) == 1 {
			// Name-only line.
			p.Name = fields[0]
			p.Number = nextNumber
			nextNumber++
			players = append(players, p)
			continue
		}

		if n, err := strconv.Atoi(fields[0]); err == nil {
			p.Number = n
		} else {
			p.Number = nextNumber
			nextNumber++
		}
		p.Name = fields[1]
		if len(fields) > 2 && fields[2] != "" {
			p.Position = fields[2]
		}
		if len(fields) > 3 && fields[3] != "" {
			p.Role = fields[3]
		}
		players = append(players, p)
	}

	return players
}
