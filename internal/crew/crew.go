// Package crew holds the agent/task abstractions at the orchestration
// framework boundary. The engine wraps these values and layers its own
// tracking and cost accounting on top; it never embeds or extends them, so
// the core types stay independent of the framework's shape.
package crew

import (
	"fmt"
	"strings"

	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// Agent is the framework-facing persona derived from a Role.
type Agent struct {
	Role      string
	Goal      string
	Backstory string
	Tools     []string
}

// NewAgent builds an agent persona from a role definition.
func NewAgent(r models.Role) Agent {
	goal := r.Goals
	if goal == "" {
		goal = fmt.Sprintf("Expert %s level %s", r.Expertise, r.Title)
	}
	backstory := r.Persona
	if backstory == "" {
		backstory = fmt.Sprintf("You are a %s level %s with extensive experience in your field. %s",
			r.Expertise, r.Title, r.Description)
	}
	return Agent{
		Role:      r.Title,
		Goal:      goal,
		Backstory: strings.TrimSpace(backstory),
		Tools:     r.Tools,
	}
}

// Task is one framework-facing work item for an agent.
type Task struct {
	Agent          Agent
	Description    string
	ExpectedOutput string
}

// NewTask builds the default analysis task for a role.
func NewTask(r models.Role) Task {
	return Task{
		Agent: NewAgent(r),
		Description: fmt.Sprintf(
			"As a %s, analyze the given requirements and provide expert insights from your %s level perspective. "+
				"Focus on practical, actionable recommendations that align with your role.",
			r.Title, r.Expertise),
		ExpectedOutput: "Detailed professional analysis with specific recommendations",
	}
}

// Prompt assembles the full prompt for one task: persona, task description,
// shared run input, and the upstream chain output when this task depends on
// an earlier role.
func (t Task) Prompt(sharedInput, chainContext string) string {
	parts := []string{
		"Role: " + t.Agent.Role,
		"Goal: " + t.Agent.Goal,
		"Backstory: " + t.Agent.Backstory,
		"Task: " + t.Description,
		"Expected Output: " + t.ExpectedOutput,
	}
	if len(t.Agent.Tools) > 0 {
		parts = append(parts, "Available Tools: "+strings.Join(t.Agent.Tools, ", "))
	}
	if sharedInput != "" {
		parts = append(parts, "Input Context: "+sharedInput)
	}
	if chainContext != "" {
		parts = append(parts, "Previous Task Results: "+chainContext)
	}
	return strings.Join(parts, "\n\n")
}
