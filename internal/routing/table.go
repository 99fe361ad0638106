package routing

import (
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/provider"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// preferenceTable is the static decision table keyed by (complexity,
// preference). Each entry is an ordered provider preference list; order
// doubles as the tie-break when estimated costs are equal. Read-only after
// init, safe for unsynchronized concurrent reads.
var preferenceTable = map[Complexity]map[string][]string{
	Simple: {
		models.PreferFast:          {provider.LocalMistral, provider.OpenAIGPT35},
		models.PreferBalanced:      {provider.LocalMistral, provider.OpenAIGPT35},
		models.PreferPremium:       {provider.OpenAIGPT35, provider.LocalMistral},
		models.PreferCostOptimized: {provider.LocalMistral},
	},
	Medium: {
		models.PreferFast:          {provider.LocalMistral, provider.OpenAIGPT35, provider.AnthropicHaiku},
		models.PreferBalanced:      {provider.OpenAIGPT35, provider.AnthropicHaiku, provider.LocalMistral},
		models.PreferPremium:       {provider.OpenAIGPT4, provider.OpenAIGPT35, provider.AnthropicHaiku},
		models.PreferCostOptimized: {provider.LocalMistral, provider.AnthropicHaiku, provider.OpenAIGPT35},
	},
	Complex: {
		models.PreferFast:          {provider.OpenAIGPT35, provider.AnthropicHaiku, provider.LocalMistral},
		models.PreferBalanced:      {provider.OpenAIGPT4, provider.AnthropicHaiku, provider.OpenAIGPT35},
		models.PreferPremium:       {provider.OpenAIGPT4, provider.AnthropicHaiku, provider.OpenAIGPT35},
		models.PreferCostOptimized: {provider.AnthropicHaiku, provider.OpenAIGPT35, provider.LocalMistral},
	},
	Specialized: {
		models.PreferFast:          {provider.AnthropicHaiku, provider.OpenAIGPT4},
		models.PreferBalanced:      {provider.OpenAIGPT4, provider.AnthropicHaiku},
		models.PreferPremium:       {provider.OpenAIGPT4, provider.AnthropicHaiku, provider.OpenAIGPT35},
		models.PreferCostOptimized: {provider.AnthropicHaiku, provider.OpenAIGPT35},
	},
}

// CanServe reports whether a provider is capable of the given complexity.
// The local model handles everything up to Complex; Specialized work needs a
// commercial backend.
func CanServe(id string, c Complexity) bool {
	if id == provider.LocalMistral {
		return c != Specialized
	}
	return true
}

// Candidates returns the static preference list for (complexity, preference).
// Unknown preferences fall back to balanced.
func Candidates(c Complexity, preference string) []string {
	row, ok := preferenceTable[c]
	if !ok {
		row = preferenceTable[Simple]
	}
	list, ok := row[preference]
	if !ok {
		list = row[models.PreferBalanced]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
