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

// Schema Versions
const (
	SchemaVersionV1      = 1
	CurrentSchemaVersion = SchemaVersionV1
)

// App States
const (
	AppStateMenu    = "menu"
	AppStatePlaying = "playing"
)

// Action Categories
const (
	CategoryOffensive = "offensive"
	CategoryDefensive = "defensive"
	CategoryNeutral   = "neutral"
)

// Roster defaults used by the bulk import parser.
const (
	DefaultRole     = "Titular"
	DefaultPosition = "Linha"
)

// Jersey number bounds enforced by the HTTP layer, not by the store.
const (
	MinJerseyNumber = 1
	MaxJerseyNumber = 99
)

// defaultActionTypes seeds the catalog on first run. Users may add, edit and
// remove entries afterwards; the seed is only applied when no catalog exists.
var defaultActionTypes = []ActionType{
	{Name: "Gol", Icon: "⚽", Color: "#2ecc71", Category: CategoryOffensive},
	{Name: "Finalização no Gol", Icon: "🎯", Color: "#27ae60", Category: CategoryOffensive},
	{Name: "Finalização Fora", Icon: "💨", Color: "#95a5a6", Category: CategoryOffensive},
	{Name: "Assistência", Icon: "🅰️", Color: "#16a085", Category: CategoryOffensive},
	{Name: "Drible", Icon: "🪄", Color: "#9b59b6", Category: CategoryOffensive},
	{Name: "Cruzamento", Icon: "↪️", Color: "#3498db", Category: CategoryOffensive},
	{Name: "Passe Certo", Icon: "✅", Color: "#2980b9", Category: CategoryNeutral},
	{Name: "Passe Errado", Icon: "❌", Color: "#e67e22", Category: CategoryNeutral},
	{Name: "Lateral", Icon: "🤾", Color: "#7f8c8d", Category: CategoryNeutral},
	{Name: "Escanteio", Icon: "🚩", Color: "#f39c12", Category: CategoryOffensive},
	{Name: "Impedimento", Icon: "🛑", Color: "#c0392b", Category: CategoryNeutral},
	{Name: "Desarme", Icon: "🛡️", Color: "#2c3e50", Category: CategoryDefensive},
	{Name: "Interceptação", Icon: "✋", Color: "#34495e", Category: CategoryDefensive},
	{Name: "Defesa", Icon: "🧤", Color: "#1abc9c", Category: CategoryDefensive},
	{Name: "Falta Cometida", Icon: "⚠️", Color: "#e74c3c", Category: CategoryDefensive},
	{Name: "Falta Sofrida", Icon: "🤕", Color: "#d35400", Category: CategoryNeutral},
	{Name: "Cartão Amarelo", Icon: "🟨", Color: "#f1c40f", Category: CategoryNeutral},
	{Name: "Cartão Vermelho", Icon: "🟥", Color: "#e74c3c", Category: CategoryNeutral},
}
