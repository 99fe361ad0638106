package routing

import (
	"strings"
	"testing"
)

func TestAnalyze_lengthBuckets(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		text string
		want Complexity
	}{
		{"empty", "", Simple},
		{"short", "summarize this memo", Simple},
		{"medium", strings.Repeat("describe the quarterly numbers in plain words ", 3), Medium},
		{"long", strings.Repeat("write about the team meeting notes from last week ", 11), Complex},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Analyze(tc.text, ""); got != tc.want {
				t.Fatalf("Analyze(%d chars): got %s, want %s", len(tc.text), got, tc.want)
			}
		})
	}
}

func TestAnalyze_complexTermsEscalate(t *testing.T) {
	t.Parallel()
	if got := Analyze("analyze the data", ""); got != Medium {
		t.Fatalf("short text with complex term: got %s, want medium", got)
	}
	medium := strings.Repeat("please analyze these figures for the board meeting ", 3)
	if got := Analyze(medium, ""); got != Complex {
		t.Fatalf("medium text with complex term: got %s, want complex", got)
	}
	// Already Complex stays Complex, never jumps to Specialized.
	long := strings.Repeat("produce a comprehensive architectural design document draft ", 11)
	if got := Analyze(long, ""); got != Complex {
		t.Fatalf("long text with complex terms: got %s, want complex", got)
	}
}

func TestAnalyze_specializedVocabularyWins(t *testing.T) {
	t.Parallel()
	if got := Analyze("review this legal contract", ""); got != Specialized {
		t.Fatalf("legal term: got %s, want specialized", got)
	}
	// Specialized applies regardless of length and beats complex terms.
	if got := Analyze("analyze regulatory compliance obligations", ""); got != Specialized {
		t.Fatalf("regulatory text: got %s, want specialized", got)
	}
	// Context contributes to classification too.
	if got := Analyze("summarize the findings", "clinical trial results for phase 2"); got != Specialized {
		t.Fatalf("clinical context: got %s, want specialized", got)
	}
}

func TestAnalyze_deterministic(t *testing.T) {
	t.Parallel()
	text := "design a comprehensive migration strategy"
	first := Analyze(text, "ctx")
	for i := 0; i < 50; i++ {
		if got := Analyze(text, "ctx"); got != first {
			t.Fatalf("iteration %d: got %s, want %s", i, got, first)
		}
	}
}
