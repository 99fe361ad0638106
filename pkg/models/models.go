// Package models provides shared types for the WorkForce HTTP API and external tools.
// These types mirror the API JSON and are stable for use by external consumers.
package models

import "time"

// Team is a named group of roles with a monthly spend ceiling.
// CurrentSpend only ever grows within a billing period; it is incremented by
// committed ledger entries and reset externally at period rollover.
type Team struct {
	TeamID        string    `json:"team_id,omitempty"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	MonthlyBudget float64   `json:"monthly_budget"`
	CurrentSpend  float64   `json:"current_spend"`
	Status        string    `json:"status"`
	RoleCount     int       `json:"role_count,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Remaining returns the unspent portion of the team's monthly budget.
func (t Team) Remaining() float64 {
	return t.MonthlyBudget - t.CurrentSpend
}

// Role is an AI team member: a persona plus execution configuration.
// Roles are immutable inputs to a run; the engine never mutates them.
type Role struct {
	RoleID      string    `json:"role_id,omitempty"`
	TeamID      string    `json:"team_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Expertise   string    `json:"expertise"`
	Provider    string    `json:"provider,omitempty"` // preferred backend identifier, advisory
	Goals       string    `json:"goals,omitempty"`
	Persona     string    `json:"persona,omitempty"`
	Tools       []string  `json:"tools,omitempty"`
	DependsOn   string    `json:"depends_on,omitempty"` // title of an earlier role whose output feeds this one
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// TaskRequest is one unit of work for one role within a team run.
type TaskRequest struct {
	Role       Role     `json:"role"`
	Prompt     string   `json:"prompt"`
	Context    string   `json:"context,omitempty"`
	PerTaskCap *float64 `json:"per_task_cap,omitempty"`
}

// RoutingDecision is the routing engine's verdict for one task: an ordered
// candidate chain, a cost estimate for the head candidate, and the reasoning
// behind the order. Created once per task and never mutated afterwards.
type RoutingDecision struct {
	Complexity    string   `json:"complexity"`
	Provider      string   `json:"provider,omitempty"` // head of Candidates, "" when the list is empty
	Candidates    []string `json:"candidates"`
	EstimatedCost float64  `json:"estimated_cost"`
	Reasoning     string   `json:"reasoning"`
}

// Attempt records one provider call inside a fallback chain, kept for audit
// even when a later candidate succeeds.
type Attempt struct {
	Provider string        `json:"provider"`
	Error    string        `json:"error,omitempty"`
	Tokens   int64         `json:"tokens"`
	Cost     float64       `json:"cost"`
	Duration time.Duration `json:"duration_ns"`
}

// ExecutionResult is the outcome of one task after the fallback chain ran.
// ResultID makes ledger commits idempotent: the same result committed twice
// counts once. Cost includes billed-but-failed attempts earlier in the chain.
type ExecutionResult struct {
	ResultID string        `json:"result_id"`
	Provider string        `json:"provider,omitempty"` // provider that produced Content; "" on total failure
	Content  string        `json:"content,omitempty"`
	Tokens   int64         `json:"tokens"`
	Cost     float64       `json:"cost"`
	Duration time.Duration `json:"duration_ns"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Attempts []Attempt     `json:"attempts,omitempty"`
}

// TaskOutcome pairs a role with its execution result inside a team run.
type TaskOutcome struct {
	Role     Role            `json:"role"`
	Decision RoutingDecision `json:"decision"`
	Result   ExecutionResult `json:"result"`
	Status   string          `json:"status"` // completed, failed, or skipped
}

// TeamExecution aggregates one team run. Breakdown preserves role submission
// order regardless of completion order.
type TeamExecution struct {
	ExecutionID string        `json:"execution_id"`
	TeamID      string        `json:"team_id"`
	TeamName    string        `json:"team_name"`
	Status      string        `json:"status"`
	Input       string        `json:"input,omitempty"`
	Preference  string        `json:"preference,omitempty"`
	Breakdown   []TaskOutcome `json:"breakdown"`
	TotalCost   float64       `json:"total_cost"`
	TotalTokens int64         `json:"total_tokens"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}
