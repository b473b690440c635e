// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/nyl-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter renders transcripts as JSON.
// NOTE: JSON exports always include the complete transcript and do not
// respect filtering options, so the output is a faithful dump that can be
// re-imported.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

type jsonTranscript struct {
	Session model.ChatSession `json:"session"`
	Turns   []jsonTurn        `json:"turns"`
}

type jsonTurn struct {
	User        string     `json:"user"`
	Assistant   string     `json:"assistant,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	AssistantAt *time.Time `json:"assistant_at,omitempty"`
}

// Export converts a transcript to indented JSON.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}

	out := jsonTranscript{Session: t.Session}
	for _, turn := range t.Turns {
		out.Turns = append(out.Turns, jsonTurn{
			User:        turn.User,
			Assistant:   turn.Assistant,
			CreatedAt:   turn.CreatedAt,
			AssistantAt: turn.AssistantAt,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
