package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/store"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

func (s *Store) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT
  t.team_id, t.name, t.description, t.monthly_budget, t.current_spend, t.status, t.created_at, t.updated_at,
  (SELECT COUNT(*) FROM roles r WHERE r.team_id = t.team_id) AS role_count
FROM teams t
ORDER BY t.created_at ASC, t.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Team
	for rows.Next() {
		var t models.Team
		var createdAt, updatedAt int64
		if err := rows.Scan(&t.TeamID, &t.Name, &t.Description, &t.MonthlyBudget, &t.CurrentSpend, &t.Status, &createdAt, &updatedAt, &t.RoleCount); err != nil {
			return nil, err
		}
		t.CreatedAt = time.Unix(createdAt, 0).UTC()
		t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTeamByName(ctx context.Context, name string) (models.Team, error) {
	var t models.Team
	var createdAt, updatedAt int64
	err := s.Pool.QueryRow(ctx,
		`SELECT team_id, name, description, monthly_budget, current_spend, status, created_at, updated_at FROM teams WHERE name = $1`,
		name).Scan(&t.TeamID, &t.Name, &t.Description, &t.MonthlyBudget, &t.CurrentSpend, &t.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Team{}, fmt.Errorf("team %q: %w", name, store.ErrNotFound)
		}
		return models.Team{}, err
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return t, nil
}

func (s *Store) CreateTeam(ctx context.Context, name, description string, monthlyBudget float64) (models.Team, error) {
	if name == "" {
		return models.Team{}, errors.New("team name required")
	}
	if monthlyBudget < 0 {
		return models.Team{}, errors.New("monthly budget must be >= 0")
	}
	id := uuid.NewString()
	now := time.Now().UTC().Unix()
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO teams(team_id, name, description, monthly_budget, current_spend, status, created_at, updated_at) VALUES($1, $2, $3, $4, 0, $5, $6, $7)`,
		id, name, description, monthlyBudget, models.StatusIdle, now, now)
	if err != nil {
		return models.Team{}, err
	}
	return models.Team{
		TeamID:        id,
		Name:          name,
		Description:   description,
		MonthlyBudget: monthlyBudget,
		Status:        models.StatusIdle,
		CreatedAt:     time.Unix(now, 0).UTC(),
		UpdatedAt:     time.Unix(now, 0).UTC(),
	}, nil
}

func (s *Store) DeleteTeam(ctx context.Context, name string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM teams WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("team %q: %w", name, store.ErrNotFound)
	}
	return nil
}

func (s *Store) SetTeamBudget(ctx context.Context, name string, monthlyBudget float64) error {
	if monthlyBudget < 0 {
		return errors.New("monthly budget must be >= 0")
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE teams SET monthly_budget = $1, updated_at = $2 WHERE name = $3`,
		monthlyBudget, time.Now().UTC().Unix(), name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("team %q: %w", name, store.ErrNotFound)
	}
	return nil
}

func (s *Store) SetTeamStatus(ctx context.Context, name, status string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE teams SET status = $1, updated_at = $2 WHERE name = $3`,
		status, time.Now().UTC().Unix(), name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("team %q: %w", name, store.ErrNotFound)
	}
	return nil
}

func (s *Store) AddTeamSpend(ctx context.Context, teamName string, amount float64) (float64, float64, error) {
	if amount < 0 {
		return 0, 0, errors.New("spend amount must be >= 0")
	}
	var newSpend, budget float64
	err := s.Pool.QueryRow(ctx,
		`UPDATE teams SET current_spend = current_spend + $1, updated_at = $2 WHERE name = $3 RETURNING current_spend, monthly_budget`,
		amount, time.Now().UTC().Unix(), teamName).Scan(&newSpend, &budget)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, fmt.Errorf("team %q: %w", teamName, store.ErrNotFound)
		}
		return 0, 0, err
	}
	return newSpend, budget, nil
}

func (s *Store) ListRoles(ctx context.Context, teamName string) ([]models.Role, error) {
	team, err := s.GetTeamByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT role_id, team_id, title, description, expertise, provider, goals, persona, tools, depends_on, active, created_at FROM roles WHERE team_id = $1 ORDER BY created_at ASC, role_id ASC`,
		team.TeamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Role
	for rows.Next() {
		var r models.Role
		var tools []byte
		var createdAt int64
		if err := rows.Scan(&r.RoleID, &r.TeamID, &r.Title, &r.Description, &r.Expertise, &r.Provider, &r.Goals, &r.Persona, &tools, &r.DependsOn, &r.Active, &createdAt); err != nil {
			return nil, err
		}
		if len(tools) > 0 {
			if err := json.Unmarshal(tools, &r.Tools); err != nil {
				return nil, fmt.Errorf("decode role tools: %w", err)
			}
		}
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateRole(ctx context.Context, teamName string, role models.Role) (models.Role, error) {
	team, err := s.GetTeamByName(ctx, teamName)
	if err != nil {
		return models.Role{}, err
	}
	if role.Title == "" {
		return models.Role{}, errors.New("role title required")
	}
	if role.Expertise == "" {
		role.Expertise = models.ExpertiseIntermediate
	}
	tools, err := json.Marshal(role.Tools)
	if err != nil {
		return models.Role{}, err
	}

	role.RoleID = uuid.NewString()
	role.TeamID = team.TeamID
	role.Active = true
	now := time.Now().UTC().Unix()
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO roles(role_id, team_id, title, description, expertise, provider, goals, persona, tools, depends_on, active, created_at) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11)`,
		role.RoleID, role.TeamID, role.Title, role.Description, role.Expertise, role.Provider, role.Goals, role.Persona, tools, role.DependsOn, now)
	if err != nil {
		return models.Role{}, err
	}
	role.CreatedAt = time.Unix(now, 0).UTC()
	return role, nil
}

func (s *Store) SetRoleActive(ctx context.Context, teamName, title string, active bool) error {
	team, err := s.GetTeamByName(ctx, teamName)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE roles SET active = $1 WHERE team_id = $2 AND title = $3`,
		active, team.TeamID, title)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("role %q: %w", title, store.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateTeamExecution(ctx context.Context, exec models.TeamExecution) error {
	if exec.ExecutionID == "" {
		return errors.New("execution id required")
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO team_executions(execution_id, team_id, team_name, status, input, preference, total_cost, total_tokens, error, started_at, completed_at) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL)`,
		exec.ExecutionID, exec.TeamID, exec.TeamName, exec.Status, exec.Input, exec.Preference, exec.TotalCost, exec.TotalTokens, exec.Error, exec.StartedAt.UTC().Unix())
	return err
}

func (s *Store) FinalizeTeamExecution(ctx context.Context, exec models.TeamExecution) error {
	var completed any
	if exec.CompletedAt != nil {
		completed = exec.CompletedAt.UTC().Unix()
	}
	tag, err := s.Pool.Exec(ctx,
		`UPDATE team_executions SET status = $1, total_cost = $2, total_tokens = $3, error = $4, completed_at = $5 WHERE execution_id = $6`,
		exec.Status, exec.TotalCost, exec.TotalTokens, exec.Error, completed, exec.ExecutionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("execution %q: %w", exec.ExecutionID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) AppendTaskExecution(ctx context.Context, executionID string, position int, outcome models.TaskOutcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO task_executions(execution_id, position, role_title, status, outcome, created_at) VALUES($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (execution_id, position) DO UPDATE SET role_title = EXCLUDED.role_title, status = EXCLUDED.status, outcome = EXCLUDED.outcome`,
		executionID, position, outcome.Role.Title, outcome.Status, body, time.Now().UTC().Unix())
	return err
}

func (s *Store) ListTeamExecutions(ctx context.Context, teamName string, limit int) ([]models.TeamExecution, error) {
	team, err := s.GetTeamByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = models.DefaultExecutionListLimit
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT execution_id, team_id, team_name, status, input, preference, total_cost, total_tokens, error, started_at, completed_at FROM team_executions WHERE team_id = $1 ORDER BY started_at DESC, execution_id DESC LIMIT $2`,
		team.TeamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TeamExecution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

func (s *Store) GetTeamExecution(ctx context.Context, executionID string) (models.TeamExecution, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT execution_id, team_id, team_name, status, input, preference, total_cost, total_tokens, error, started_at, completed_at FROM team_executions WHERE execution_id = $1`,
		executionID)
	exec, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TeamExecution{}, fmt.Errorf("execution %q: %w", executionID, store.ErrNotFound)
		}
		return models.TeamExecution{}, err
	}

	rows, err := s.Pool.Query(ctx,
		`SELECT outcome FROM task_executions WHERE execution_id = $1 ORDER BY position ASC`, executionID)
	if err != nil {
		return models.TeamExecution{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return models.TeamExecution{}, err
		}
		var outcome models.TaskOutcome
		if err := json.Unmarshal(body, &outcome); err != nil {
			return models.TeamExecution{}, fmt.Errorf("decode task outcome: %w", err)
		}
		exec.Breakdown = append(exec.Breakdown, outcome)
	}
	return exec, rows.Err()
}

func scanExecution(row interface{ Scan(dest ...any) error }) (models.TeamExecution, error) {
	var exec models.TeamExecution
	var startedAt int64
	var completedAt sql.NullInt64
	err := row.Scan(&exec.ExecutionID, &exec.TeamID, &exec.TeamName, &exec.Status, &exec.Input, &exec.Preference,
		&exec.TotalCost, &exec.TotalTokens, &exec.Error, &startedAt, &completedAt)
	if err != nil {
		return models.TeamExecution{}, err
	}
	exec.StartedAt = time.Unix(startedAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		exec.CompletedAt = &t
	}
	return exec, nil
}
