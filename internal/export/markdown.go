// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders transcripts as Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	if len(t.Turns) == 0 {
		return nil, fmt.Errorf("transcript has no turns")
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(t.Session.Title)))
		if t.Session.Model != "" {
			sb.WriteString(fmt.Sprintf("model: %s\n", t.Session.Model))
		}
		if t.Session.Scope != "" {
			sb.WriteString(fmt.Sprintf("scope: %s\n", t.Session.Scope))
		}
		if !t.Session.CreatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("date: %s\n", t.Session.CreatedAt.Format(time.RFC3339)))
		}
		sb.WriteString(fmt.Sprintf("turns: %d\n", len(t.Turns)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: nyl-tui\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdownHeading(t.Session.Title)))

	for i, turn := range t.Turns {
		e.writeEntry(&sb, "You", turn.User, turn.CreatedAt)
		if turn.Assistant != "" {
			var at time.Time
			if turn.AssistantAt != nil {
				at = *turn.AssistantAt
			}
			e.writeEntry(&sb, "Assistant", turn.Assistant, at)
		}
		if i < len(t.Turns)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) writeEntry(sb *strings.Builder, label, content string, at time.Time) {
	if content == "" {
		return
	}
	if e.options.IncludeTimestamps && !at.IsZero() {
		fmt.Fprintf(sb, "### %s <sub>%s</sub>\n\n", label, at.Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintf(sb, "### %s\n\n", label)
	}
	sb.WriteString(content)
	sb.WriteString("\n\n")
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// escapeYAML quotes a value when it would break YAML scalar parsing.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#{}[],&*!|>'\"%@`") || strings.TrimSpace(s) != s {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// escapeMarkdownHeading keeps a title from injecting heading syntax.
func escapeMarkdownHeading(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
