// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todo/internal/board"
	"todo/internal/service"
)

const (
	// ListSeparator is the separator line for category sections.
	ListSeparator = "------------"

	// TranslationIndent prefixes a translation line, aligned under the description.
	TranslationIndent = "        → "
)

// FormatTask formats a board item.
// Format: "{N:>4}  [x] {DESCRIPTION}\n", plus "        → {TRANSLATION}\n" when translated.
func FormatTask(w io.Writer, num int, item board.Item) {
	formatItem(w, fmt.Sprintf("%4d", num), item)
}

// FormatTaskRef formats an item outside the current category under its "@id" reference.
func FormatTaskRef(w io.Writer, item board.Item) {
	formatItem(w, fmt.Sprintf("%4s", "@"+item.Task.ID), item)
}

func formatItem(w io.Writer, label string, item board.Item) {
	mark := "[ ]"
	if item.Task.Completed {
		mark = "[x]"
	}
	fmt.Fprintf(w, "%s  %s %s\n", label, mark, normalizeDescription(item.Task.Description))
	if item.Translation != "" {
		fmt.Fprintf(w, "%s%s\n", TranslationIndent, collapse(item.Translation))
	}
}

// FormatEmpty prints the empty-board message.
func FormatEmpty(w io.Writer) {
	fmt.Fprintln(w, "no tasks found")
}

// FormatCategoryHeader formats a category section header.
func FormatCategoryHeader(w io.Writer, category service.Category, count int) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%s (%d)\n", category.Title(), count)
	fmt.Fprintln(w, ListSeparator)
}

// FormatSession prints the signed-in user.
func FormatSession(w io.Writer, s service.Session) {
	if s.Email == "" {
		fmt.Fprintln(w, s.UID)
		return
	}
	fmt.Fprintln(w, s.Email)
}

// normalizeDescription normalizes a description for display.
// - Empty or whitespace-only descriptions become "(untitled)"
// - Newlines are replaced with spaces
func normalizeDescription(desc string) string {
	desc = collapse(desc)
	if strings.TrimSpace(desc) == "" {
		return "(untitled)"
	}
	return desc
}

func collapse(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
