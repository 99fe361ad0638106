// Package routing classifies task difficulty and turns it, together with the
// caller's quality preference and the budget guard's verdict, into an ordered
// provider candidate list.
package routing

import "strings"

// Complexity classifies task difficulty for provider selection.
type Complexity string

const (
	Simple      Complexity = "simple"
	Medium      Complexity = "medium"
	Complex     Complexity = "complex"
	Specialized Complexity = "specialized"
)

// complexTerms raise the length-derived baseline by one level, capped at Complex.
var complexTerms = []string{
	"analyze", "analysis", "synthesize", "comprehensive", "strategic",
	"design", "architect", "optimize", "algorithm", "reasoning", "research",
}

// specializedTerms force Specialized regardless of length or other keywords.
var specializedTerms = []string{
	"legal", "medical", "financial", "regulatory", "compliance",
	"technical documentation", "clinical", "litigation",
}

// Analyze classifies the difficulty of a task from its text. It is a pure
// function: equal (text, context) always yields the same level, with no I/O.
// Empty text defaults to Simple.
func Analyze(text, context string) Complexity {
	combined := strings.ToLower(text)
	if context != "" {
		combined += " " + strings.ToLower(context)
	}

	for _, term := range specializedTerms {
		if strings.Contains(combined, term) {
			return Specialized
		}
	}

	level := Simple
	switch n := len(text); {
	case n > 500:
		level = Complex
	case n >= 100:
		level = Medium
	}

	for _, term := range complexTerms {
		if strings.Contains(combined, term) {
			level = escalate(level)
			break
		}
	}
	return level
}

// escalate raises a level by one, capped at Complex. Specialized is only ever
// reached through the domain vocabulary.
func escalate(c Complexity) Complexity {
	switch c {
	case Simple:
		return Medium
	case Medium:
		return Complex
	default:
		return Complex
	}
}
