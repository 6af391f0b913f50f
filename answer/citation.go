package answer

import "strings"

// SourcesMarker separates generated text from the citation list.
const SourcesMarker = "**Sources:**"

// SourceSeparator joins multiple cited sources.
const SourceSeparator = "; "

// Citation returns the footer appended to every generated answer.
func Citation(sources ...string) string {
	return "\n\n" + SourcesMarker + " " + strings.Join(sources, SourceSeparator)
}

// SplitSources splits a composed answer into its text and cited sources.
// Text is trimmed. Sources are split on ";" with blanks dropped.
// An answer without a footer has no sources.
func SplitSources(raw string) (string, []string) {
	text, footer, found := strings.Cut(raw, SourcesMarker)
	text = strings.TrimSpace(text)
	if !found {
		return text, nil
	}

	var sources []string
	for _, s := range strings.Split(footer, ";") {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	return text, sources
}
