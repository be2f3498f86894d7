// Package textutil provides small text normalization helpers shared by the
// importer and the CLI.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// NormalizeCode canonicalizes region and batch codes: trimmed and uppercased
// so "r1" and "R1" identify the same region.
func NormalizeCode(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// DisplayName renders a person name for tables and summaries.
func DisplayName(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	return titleCaser.String(strings.ToLower(trimmed))
}
