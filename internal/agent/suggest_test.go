package agent

import (
	"reflect"
	"testing"
)

func TestExtractSuggestions(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantClean string
		wantSuggs []string
	}{
		{
			name:      "pipe separated",
			text:      "Booked for 10:30.\n[SUGGESTIONS: Cancel it | See my appointments | Book another]",
			wantClean: "Booked for 10:30.",
			wantSuggs: []string{"Cancel it", "See my appointments", "Book another"},
		},
		{
			name:      "comma separated",
			text:      "Done. [SUGGESTIONS: Yes, No]",
			wantClean: "Done.",
			wantSuggs: []string{"Yes", "No"},
		},
		{
			name:      "no marker",
			text:      "Just a plain reply.",
			wantClean: "Just a plain reply.",
			wantSuggs: nil,
		},
		{
			name:      "marker mid text",
			text:      "Before [SUGGESTIONS: One | Two] after.",
			wantClean: "Before  after.",
			wantSuggs: []string{"One", "Two"},
		},
		{
			name:      "second marker is literal",
			text:      "Hi [SUGGESTIONS: A] bye [SUGGESTIONS: B]",
			wantClean: "Hi  bye [SUGGESTIONS: B]",
			wantSuggs: []string{"A"},
		},
		{
			name:      "unclosed marker left alone",
			text:      "Hi [SUGGESTIONS: A | B",
			wantClean: "Hi [SUGGESTIONS: A | B",
			wantSuggs: nil,
		},
		{
			name:      "empty entries dropped",
			text:      "Ok [SUGGESTIONS: A | | B |]",
			wantClean: "Ok",
			wantSuggs: []string{"A", "B"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, suggs := ExtractSuggestions(tt.text)
			if clean != tt.wantClean {
				t.Errorf("clean = %q, want %q", clean, tt.wantClean)
			}
			if !reflect.DeepEqual(suggs, tt.wantSuggs) {
				t.Errorf("suggestions = %v, want %v", suggs, tt.wantSuggs)
			}
		})
	}
}
