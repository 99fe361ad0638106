package routing

import (
	"fmt"
	"strings"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/budget"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/provider"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// Availability answers whether a provider identifier has a configured adapter.
// *provider.Registry satisfies it; tests use small fakes.
type Availability interface {
	Available(id string) bool
}

// Policy combines the complexity analyzer, the static decision table, and the
// budget guard into a routing decision per task.
type Policy struct {
	Providers Availability
	Guard     budget.Guard
}

// EstimateTokens derives a conservative token count from prompt length.
// Words-to-tokens ratio of roughly 1.3, never below 1.
func EstimateTokens(prompt string) int64 {
	n := int64(float64(len(strings.Fields(prompt))) * 1.3)
	if n < 1 {
		n = 1
	}
	return n
}

// EstimateCost prices a token estimate against a provider's per-1K rate.
func EstimateCost(id string, tokens int64) float64 {
	return float64(tokens) / 1000 * provider.RatePer1K(id)
}

// Route produces the routing decision for one task. An empty candidate list
// is terminal: either the team budget is exhausted or no affordable capable
// provider exists.
func (p *Policy) Route(task models.TaskRequest, team models.Team, preference string) models.RoutingDecision {
	complexity := Analyze(task.Prompt, task.Context)
	tokens := EstimateTokens(task.Prompt)

	var candidates []string
	for _, id := range Candidates(complexity, preference) {
		if p.Providers.Available(id) && CanServe(id, complexity) {
			candidates = append(candidates, id)
		}
	}
	decision := models.RoutingDecision{Complexity: string(complexity)}
	if len(candidates) == 0 {
		decision.Reasoning = fmt.Sprintf("no configured provider can serve %s tasks", complexity)
		return decision
	}

	// A role's preferred backend is advisory: it jumps the table order but
	// still goes through the guard like any other head candidate.
	if pref := task.Role.Provider; pref != "" && pref != candidates[0] && contains(candidates, pref) {
		candidates = promote(candidates, pref)
	}

	head := candidates[0]
	estimated := EstimateCost(head, tokens)
	switch p.Guard.Check(team, estimated, task.PerTaskCap) {
	case budget.Reject:
		decision.Reasoning = "team budget exhausted; no call permitted"
		return decision
	case budget.Downgrade:
		cheapest, ok := cheapestAffordable(p.Guard, team, task.PerTaskCap, candidates, tokens)
		if !ok {
			decision.Reasoning = fmt.Sprintf(
				"%s estimated at $%.4f exceeds the spend ceiling and no affordable %s-capable provider remains",
				head, estimated, complexity)
			return decision
		}
		candidates = promote(candidates, cheapest)
		decision.Reasoning = fmt.Sprintf(
			"%s estimated at $%.4f exceeds the spend ceiling; demoted in favor of %s",
			head, estimated, cheapest)
		head = cheapest
		estimated = EstimateCost(head, tokens)
	default:
		decision.Reasoning = fmt.Sprintf("%s task routed to %s per %s preference", complexity, head, preference)
	}

	decision.Provider = head
	decision.Candidates = candidates
	decision.EstimatedCost = estimated
	return decision
}

// cheapestAffordable picks the lowest-cost capable candidate that fits both
// ceilings. Strict less-than keeps the scan stable: on equal cost the
// candidate earlier in table order wins.
func cheapestAffordable(g budget.Guard, team models.Team, perTaskCap *float64, candidates []string, tokens int64) (string, bool) {
	best := ""
	bestCost := 0.0
	for _, id := range candidates {
		cost := EstimateCost(id, tokens)
		if !g.Affordable(team, cost, perTaskCap) {
			continue
		}
		if best == "" || cost < bestCost {
			best = id
			bestCost = cost
		}
	}
	return best, best != ""
}

func contains(list []string, id string) bool {
	for _, c := range list {
		if c == id {
			return true
		}
	}
	return false
}

// promote moves id to the front, preserving the relative order of the rest.
func promote(candidates []string, id string) []string {
	out := make([]string, 0, len(candidates))
	out = append(out, id)
	for _, c := range candidates {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}
