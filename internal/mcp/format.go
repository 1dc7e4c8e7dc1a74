package mcp

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FormatMatches renders match_address output as markdown.
func FormatMatches(out MatchAddressOutput) string {
	if len(out.Matches) == 0 {
		return fmt.Sprintf("No match found for \"%s\"", out.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Matches for \"%s\"\n\n", out.Query)
	fmt.Fprintf(&sb, "Found %d match", len(out.Matches))
	if len(out.Matches) != 1 {
		sb.WriteString("es")
	}
	sb.WriteString("\n\n")

	for i, m := range out.Matches {
		fmt.Fprintf(&sb, "%d. **%s** (score: %.3f)", i+1, m.Text, m.Score)
		if m.Source != "" {
			fmt.Fprintf(&sb, " from `%s`", filepath.Base(m.Source))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatStreet renders match_street output as markdown.
func FormatStreet(out MatchStreetOutput) string {
	if !out.Found {
		return fmt.Sprintf("No street matched \"%s\"", out.Query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Street for \"%s\"\n\n**%s** (score: %.3f)\n", out.Query, out.Street, out.Score)
	if out.Source != "" {
		fmt.Fprintf(&sb, "\nFound in the requested location `%s`.\n", filepath.Base(out.Source))
	} else {
		sb.WriteString("\nFound outside the requested location.\n")
	}
	return sb.String()
}

// FormatNormalized renders normalize_address output as markdown.
func FormatNormalized(out NormalizeAddressOutput) string {
	return fmt.Sprintf("canonical: `%s`\nsurface: `%s`\n", out.Canonical, out.Surface)
}
