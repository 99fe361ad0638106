package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// ErrNotFound is returned when a lookup by name or id matches nothing.
var ErrNotFound = errors.New("not found")

func (s *sqliteStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT
  t.team_id, t.name, t.description, t.monthly_budget, t.current_spend, t.status, t.created_at, t.updated_at,
  (SELECT COUNT(*) FROM roles r WHERE r.team_id = t.team_id) AS role_count
FROM teams t
ORDER BY t.created_at ASC, t.name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

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

func (s *sqliteStore) GetTeamByName(ctx context.Context, name string) (models.Team, error) {
	var t models.Team
	var createdAt, updatedAt int64
	err := s.stmtGetTeamByName.QueryRowContext(ctx, name).Scan(
		&t.TeamID, &t.Name, &t.Description, &t.MonthlyBudget, &t.CurrentSpend, &t.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Team{}, fmt.Errorf("team %q: %w", name, ErrNotFound)
		}
		return models.Team{}, err
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return t, nil
}

func (s *sqliteStore) CreateTeam(ctx context.Context, name, description string, monthlyBudget float64) (models.Team, error) {
	if name == "" {
		return models.Team{}, errors.New("team name required")
	}
	if monthlyBudget < 0 {
		return models.Team{}, errors.New("monthly budget must be >= 0")
	}
	id := uuid.NewString()
	now := time.Now().UTC().Unix()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO teams(team_id, name, description, monthly_budget, current_spend, status, created_at, updated_at) VALUES(?, ?, ?, ?, 0, ?, ?, ?)`,
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

func (s *sqliteStore) DeleteTeam(ctx context.Context, name string) error {
	team, err := s.GetTeamByName(ctx, name)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `DELETE FROM teams WHERE team_id = ?`, team.TeamID)
	return err
}

func (s *sqliteStore) SetTeamBudget(ctx context.Context, name string, monthlyBudget float64) error {
	if monthlyBudget < 0 {
		return errors.New("monthly budget must be >= 0")
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE teams SET monthly_budget = ?, updated_at = ? WHERE name = ?`,
		monthlyBudget, time.Now().UTC().Unix(), name)
	if err != nil {
		return err
	}
	return requireRow(res, name)
}

func (s *sqliteStore) SetTeamStatus(ctx context.Context, name, status string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE teams SET status = ?, updated_at = ? WHERE name = ?`,
		status, time.Now().UTC().Unix(), name)
	if err != nil {
		return err
	}
	return requireRow(res, name)
}

// AddTeamSpend increments current_spend in a single statement so concurrent
// commits never lose an update.
func (s *sqliteStore) AddTeamSpend(ctx context.Context, teamName string, amount float64) (float64, float64, error) {
	if amount < 0 {
		return 0, 0, errors.New("spend amount must be >= 0")
	}
	var newSpend, budget float64
	err := s.stmtAddTeamSpend.QueryRowContext(ctx, amount, time.Now().UTC().Unix(), teamName).Scan(&newSpend, &budget)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, fmt.Errorf("team %q: %w", teamName, ErrNotFound)
		}
		return 0, 0, err
	}
	return newSpend, budget, nil
}

func (s *sqliteStore) ListRoles(ctx context.Context, teamName string) ([]models.Role, error) {
	team, err := s.GetTeamByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	rows, err := s.stmtListRoles.QueryContext(ctx, team.TeamID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Role
	for rows.Next() {
		r, err := scanRoleRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CreateRole(ctx context.Context, teamName string, role models.Role) (models.Role, error) {
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
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO roles(role_id, team_id, title, description, expertise, provider, goals, persona, tools, depends_on, active, created_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		role.RoleID, role.TeamID, role.Title, role.Description, role.Expertise, role.Provider, role.Goals, role.Persona, string(tools), role.DependsOn, now)
	if err != nil {
		return models.Role{}, err
	}
	role.CreatedAt = time.Unix(now, 0).UTC()
	return role, nil
}

func (s *sqliteStore) SetRoleActive(ctx context.Context, teamName, title string, active bool) error {
	team, err := s.GetTeamByName(ctx, teamName)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE roles SET active = ? WHERE team_id = ? AND title = ?`,
		boolToInt(active), team.TeamID, title)
	if err != nil {
		return err
	}
	return requireRow(res, title)
}

func scanRoleRow(rows interface{ Scan(dest ...any) error }) (models.Role, error) {
	var r models.Role
	var tools string
	var active int
	var createdAt int64
	err := rows.Scan(&r.RoleID, &r.TeamID, &r.Title, &r.Description, &r.Expertise, &r.Provider, &r.Goals, &r.Persona, &tools, &r.DependsOn, &active, &createdAt)
	if err != nil {
		return models.Role{}, err
	}
	if tools != "" {
		if err := json.Unmarshal([]byte(tools), &r.Tools); err != nil {
			return models.Role{}, fmt.Errorf("decode role tools: %w", err)
		}
	}
	r.Active = active != 0
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return r, nil
}

func (s *sqliteStore) CreateTeamExecution(ctx context.Context, exec models.TeamExecution) error {
	if exec.ExecutionID == "" {
		return errors.New("execution id required")
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO team_executions(execution_id, team_id, team_name, status, input, preference, total_cost, total_tokens, error, started_at, completed_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		exec.ExecutionID, exec.TeamID, exec.TeamName, exec.Status, exec.Input, exec.Preference, exec.TotalCost, exec.TotalTokens, exec.Error, exec.StartedAt.UTC().Unix())
	return err
}

func (s *sqliteStore) FinalizeTeamExecution(ctx context.Context, exec models.TeamExecution) error {
	var completed any
	if exec.CompletedAt != nil {
		completed = exec.CompletedAt.UTC().Unix()
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE team_executions SET status = ?, total_cost = ?, total_tokens = ?, error = ?, completed_at = ? WHERE execution_id = ?`,
		exec.Status, exec.TotalCost, exec.TotalTokens, exec.Error, completed, exec.ExecutionID)
	if err != nil {
		return err
	}
	return requireRow(res, exec.ExecutionID)
}

// AppendTaskExecution stores the full outcome as JSON; position preserves
// role submission order independent of completion order.
func (s *sqliteStore) AppendTaskExecution(ctx context.Context, executionID string, position int, outcome models.TaskOutcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	_, err = s.stmtAppendTask.ExecContext(ctx, executionID, position, outcome.Role.Title, outcome.Status, string(body), time.Now().UTC().Unix())
	return err
}

// ListTeamExecutions returns execution summaries newest first, without the
// per-task breakdown; use GetTeamExecution for the full record.
func (s *sqliteStore) ListTeamExecutions(ctx context.Context, teamName string, limit int) ([]models.TeamExecution, error) {
	team, err := s.GetTeamByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = models.DefaultExecutionListLimit
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT execution_id, team_id, team_name, status, input, preference, total_cost, total_tokens, error, started_at, completed_at FROM team_executions WHERE team_id = ? ORDER BY started_at DESC, execution_id DESC LIMIT ?`,
		team.TeamID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.TeamExecution
	for rows.Next() {
		exec, err := scanExecutionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetTeamExecution(ctx context.Context, executionID string) (models.TeamExecution, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT execution_id, team_id, team_name, status, input, preference, total_cost, total_tokens, error, started_at, completed_at FROM team_executions WHERE execution_id = ?`,
		executionID)
	exec, err := scanExecutionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TeamExecution{}, fmt.Errorf("execution %q: %w", executionID, ErrNotFound)
		}
		return models.TeamExecution{}, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT outcome FROM task_executions WHERE execution_id = ? ORDER BY position ASC`, executionID)
	if err != nil {
		return models.TeamExecution{}, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return models.TeamExecution{}, err
		}
		var outcome models.TaskOutcome
		if err := json.Unmarshal([]byte(body), &outcome); err != nil {
			return models.TeamExecution{}, fmt.Errorf("decode task outcome: %w", err)
		}
		exec.Breakdown = append(exec.Breakdown, outcome)
	}
	return exec, rows.Err()
}

func scanExecutionRow(row interface{ Scan(dest ...any) error }) (models.TeamExecution, error) {
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

func requireRow(res sql.Result, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
