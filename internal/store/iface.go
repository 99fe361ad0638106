// Package store defines the persistence boundary for teams, roles, and
// execution records, plus the default SQLite implementation.
package store

import (
	"context"

	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// Store is the persistence interface consumed by the engine, the ledger, the
// CLI, and the HTTP API.
// Implementations: the SQLite store in this package and *postgres.Store.
type Store interface {
	// Teams
	ListTeams(ctx context.Context) ([]models.Team, error)
	GetTeamByName(ctx context.Context, name string) (models.Team, error)
	CreateTeam(ctx context.Context, name, description string, monthlyBudget float64) (models.Team, error)
	DeleteTeam(ctx context.Context, name string) error
	SetTeamBudget(ctx context.Context, name string, monthlyBudget float64) error
	SetTeamStatus(ctx context.Context, name, status string) error
	// AddTeamSpend atomically increments current_spend by amount and returns
	// the new spend and the monthly budget. amount must be >= 0.
	AddTeamSpend(ctx context.Context, teamName string, amount float64) (newSpend, budget float64, err error)

	// Roles
	ListRoles(ctx context.Context, teamName string) ([]models.Role, error)
	CreateRole(ctx context.Context, teamName string, role models.Role) (models.Role, error)
	SetRoleActive(ctx context.Context, teamName, title string, active bool) error

	// Executions
	CreateTeamExecution(ctx context.Context, exec models.TeamExecution) error
	FinalizeTeamExecution(ctx context.Context, exec models.TeamExecution) error
	AppendTaskExecution(ctx context.Context, executionID string, position int, outcome models.TaskOutcome) error
	ListTeamExecutions(ctx context.Context, teamName string, limit int) ([]models.TeamExecution, error)
	GetTeamExecution(ctx context.Context, executionID string) (models.TeamExecution, error)

	Close() error
}
