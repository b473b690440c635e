// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/nyl-tui/internal/model"
)

func sampleTranscript() *Transcript {
	created := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	answered := created.Add(5 * time.Second)
	return &Transcript{
		Session: model.ChatSession{
			ID:        "s1",
			Title:     "Plan my week",
			Model:     "qwen2.5:7b",
			Scope:     "daily",
			Status:    model.StatusActive,
			CreatedAt: created,
		},
		Turns: []*model.Turn{
			{User: "Plan my day", Assistant: "Sure, let's start.", CreatedAt: created, AssistantAt: &answered},
			{User: "Add groceries", CreatedAt: answered},
		},
	}
}

func TestMarkdownExport(t *testing.T) {
	content, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	text := string(content)

	for _, want := range []string{
		"title: Plan my week",
		"model: qwen2.5:7b",
		"scope: daily",
		"# Plan my week",
		"### You",
		"Plan my day",
		"### Assistant",
		"Sure, let's start.",
		"Add groceries",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	// The open turn has no assistant section after its user entry.
	if strings.Count(text, "### Assistant") != 1 {
		t.Errorf("assistant sections = %d, want 1", strings.Count(text, "### Assistant"))
	}
}

func TestMarkdownExportRejectsEmptyTranscript(t *testing.T) {
	_, err := NewMarkdownExporter(nil).Export(&Transcript{})
	if err == nil {
		t.Error("empty transcript exported")
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	opts := &Options{OutputDir: ".", IncludeMetadata: false}
	content, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Contains(string(content), "---\ntitle:") {
		t.Error("frontmatter present with metadata disabled")
	}
}

func TestJSONExportRoundTrips(t *testing.T) {
	content, err := NewJSONExporter().Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded struct {
		Session model.ChatSession `json:"session"`
		Turns   []struct {
			User      string `json:"user"`
			Assistant string `json:"assistant"`
		} `json:"turns"`
	}
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Session.Title != "Plan my week" {
		t.Errorf("title = %q", decoded.Session.Title)
	}
	if len(decoded.Turns) != 2 || decoded.Turns[0].Assistant != "Sure, let's start." {
		t.Errorf("turns = %+v", decoded.Turns)
	}
}

func TestExportToFileWritesNamedFile(t *testing.T) {
	dir := t.TempDir()
	opts := &Options{OutputDir: dir, IncludeMetadata: true, IncludeTimestamps: true}

	path, err := ExportMarkdown(sampleTranscript(), opts)
	if err != nil {
		t.Fatalf("ExportMarkdown: %v", err)
	}
	if !strings.HasPrefix(path, dir) || !strings.HasSuffix(path, ".md") {
		t.Errorf("path = %q", path)
	}
	if !strings.Contains(path, "Plan_my_week") {
		t.Errorf("path %q does not carry the sanitized title", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Plan my week":      "Plan_my_week",
		"a/b\\c:d":          "a-b-c-d",
		"":                  "chat",
		"what? when: where": "what-_when-_where",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
