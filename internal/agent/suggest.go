package agent

import "strings"

const (
	suggestionOpen  = "[SUGGESTIONS:"
	suggestionClose = "]"
)

// ExtractSuggestions splits the first suggestion marker out of an assistant
// reply. It returns the reply with the marker removed and the parsed list.
// A second marker is left in the text untouched; without a marker the text
// comes back unchanged with no suggestions.
func ExtractSuggestions(text string) (string, []string) {
	start := strings.Index(text, suggestionOpen)
	if start < 0 {
		return text, nil
	}
	rest := text[start+len(suggestionOpen):]
	end := strings.Index(rest, suggestionClose)
	if end < 0 {
		return text, nil
	}

	inner := rest[:end]
	sep := ","
	if strings.Contains(inner, "|") {
		sep = "|"
	}
	var suggestions []string
	for _, part := range strings.Split(inner, sep) {
		if s := strings.TrimSpace(part); s != "" {
			suggestions = append(suggestions, s)
		}
	}

	clean := text[:start] + rest[end+len(suggestionClose):]
	return strings.TrimSpace(clean), suggestions
}
