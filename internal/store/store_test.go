package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatal(err)
	}
	st, err := Open(home)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestMigrationsAndTeamCRUD(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	team, err := st.CreateTeam(ctx, "research", "research crew", 50)
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if team.MonthlyBudget != 50 || team.CurrentSpend != 0 || team.Status != models.StatusIdle {
		t.Fatalf("CreateTeam: got %+v", team)
	}

	got, err := st.GetTeamByName(ctx, "research")
	if err != nil {
		t.Fatalf("GetTeamByName: %v", err)
	}
	if got.TeamID != team.TeamID || got.MonthlyBudget != 50 {
		t.Fatalf("GetTeamByName: got %+v", got)
	}

	if _, err := st.GetTeamByName(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTeamByName missing: got %v, want ErrNotFound", err)
	}

	if err := st.SetTeamBudget(ctx, "research", 120); err != nil {
		t.Fatalf("SetTeamBudget: %v", err)
	}
	if err := st.SetTeamStatus(ctx, "research", models.StatusRunning); err != nil {
		t.Fatalf("SetTeamStatus: %v", err)
	}
	got, _ = st.GetTeamByName(ctx, "research")
	if got.MonthlyBudget != 120 || got.Status != models.StatusRunning {
		t.Fatalf("after updates: got %+v", got)
	}

	teams, err := st.ListTeams(ctx)
	if err != nil {
		t.Fatalf("ListTeams: %v", err)
	}
	if len(teams) != 1 || teams[0].Name != "research" {
		t.Fatalf("ListTeams: got %+v", teams)
	}

	if err := st.DeleteTeam(ctx, "research"); err != nil {
		t.Fatalf("DeleteTeam: %v", err)
	}
	if _, err := st.GetTeamByName(ctx, "research"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected team gone, got %v", err)
	}
}

func TestAddTeamSpend(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateTeam(ctx, "t1", "", 10); err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}

	newSpend, budget, err := st.AddTeamSpend(ctx, "t1", 2.5)
	if err != nil {
		t.Fatalf("AddTeamSpend: %v", err)
	}
	if newSpend != 2.5 || budget != 10 {
		t.Fatalf("AddTeamSpend: got spend=%v budget=%v", newSpend, budget)
	}
	newSpend, _, _ = st.AddTeamSpend(ctx, "t1", 8)
	if newSpend != 10.5 {
		t.Fatalf("AddTeamSpend accumulate: got %v", newSpend)
	}

	if _, _, err := st.AddTeamSpend(ctx, "t1", -1); err == nil {
		t.Fatal("expected error for negative amount")
	}
	if _, _, err := st.AddTeamSpend(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AddTeamSpend missing team: got %v", err)
	}
}

func TestRoles(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateTeam(ctx, "t1", "", 10); err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}

	r1, err := st.CreateRole(ctx, "t1", models.Role{
		Title:    "Researcher",
		Goals:    "find sources",
		Tools:    []string{"web_search", "summarize"},
		Provider: "openai/gpt-4",
	})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if r1.Expertise != models.ExpertiseIntermediate || !r1.Active {
		t.Fatalf("CreateRole defaults: got %+v", r1)
	}
	_, err = st.CreateRole(ctx, "t1", models.Role{Title: "Writer", Expertise: models.ExpertiseSenior, DependsOn: "Researcher"})
	if err != nil {
		t.Fatalf("CreateRole writer: %v", err)
	}

	// Duplicate titles within a team are rejected.
	if _, err := st.CreateRole(ctx, "t1", models.Role{Title: "Researcher"}); err == nil {
		t.Fatal("expected duplicate title error")
	}

	roles, err := st.ListRoles(ctx, "t1")
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != 2 || roles[0].Title != "Researcher" || roles[1].Title != "Writer" {
		t.Fatalf("ListRoles order: got %+v", roles)
	}
	if len(roles[0].Tools) != 2 || roles[0].Tools[0] != "web_search" {
		t.Fatalf("tools roundtrip: got %+v", roles[0].Tools)
	}
	if roles[1].DependsOn != "Researcher" {
		t.Fatalf("depends_on roundtrip: got %q", roles[1].DependsOn)
	}

	if err := st.SetRoleActive(ctx, "t1", "Writer", false); err != nil {
		t.Fatalf("SetRoleActive: %v", err)
	}
	roles, _ = st.ListRoles(ctx, "t1")
	if roles[1].Active {
		t.Fatal("Writer should be inactive")
	}
	if err := st.SetRoleActive(ctx, "t1", "nonexistent", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetRoleActive missing: got %v", err)
	}
}

func TestExecutions(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	team, err := st.CreateTeam(ctx, "t1", "", 10)
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}

	started := time.Now().UTC().Truncate(time.Second)
	exec := models.TeamExecution{
		ExecutionID: "exec-1",
		TeamID:      team.TeamID,
		TeamName:    "t1",
		Status:      models.StatusRunning,
		Input:       "write a report",
		Preference:  models.PreferBalanced,
		StartedAt:   started,
	}
	if err := st.CreateTeamExecution(ctx, exec); err != nil {
		t.Fatalf("CreateTeamExecution: %v", err)
	}

	outcome := models.TaskOutcome{
		Role:   models.Role{Title: "Researcher"},
		Status: models.TaskCompleted,
		Decision: models.RoutingDecision{
			Complexity: "medium",
			Provider:   "openai/gpt-3.5-turbo",
			Candidates: []string{"openai/gpt-3.5-turbo"},
		},
		Result: models.ExecutionResult{
			ResultID: "res-1",
			Provider: "openai/gpt-3.5-turbo",
			Content:  "findings",
			Tokens:   120,
			Cost:     0.00018,
			Success:  true,
		},
	}
	if err := st.AppendTaskExecution(ctx, "exec-1", 0, outcome); err != nil {
		t.Fatalf("AppendTaskExecution: %v", err)
	}
	skipped := models.TaskOutcome{
		Role:   models.Role{Title: "Writer"},
		Status: models.TaskSkipped,
		Result: models.ExecutionResult{ResultID: "res-2", Error: "skipped: team budget exhausted"},
	}
	if err := st.AppendTaskExecution(ctx, "exec-1", 1, skipped); err != nil {
		t.Fatalf("AppendTaskExecution skipped: %v", err)
	}

	completed := started.Add(3 * time.Second)
	exec.Status = models.StatusCompleted
	exec.TotalCost = 0.00018
	exec.TotalTokens = 120
	exec.CompletedAt = &completed
	if err := st.FinalizeTeamExecution(ctx, exec); err != nil {
		t.Fatalf("FinalizeTeamExecution: %v", err)
	}

	got, err := st.GetTeamExecution(ctx, "exec-1")
	if err != nil {
		t.Fatalf("GetTeamExecution: %v", err)
	}
	if got.Status != models.StatusCompleted || got.TotalCost != 0.00018 || got.TotalTokens != 120 {
		t.Fatalf("GetTeamExecution: got %+v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Fatalf("CompletedAt roundtrip: got %v, want %v", got.CompletedAt, completed)
	}
	if len(got.Breakdown) != 2 {
		t.Fatalf("Breakdown: got %d entries", len(got.Breakdown))
	}
	if got.Breakdown[0].Role.Title != "Researcher" || got.Breakdown[1].Status != models.TaskSkipped {
		t.Fatalf("Breakdown order/content: got %+v", got.Breakdown)
	}
	if got.Breakdown[0].Result.Cost != 0.00018 {
		t.Fatalf("outcome cost roundtrip: got %v", got.Breakdown[0].Result.Cost)
	}

	list, err := st.ListTeamExecutions(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("ListTeamExecutions: %v", err)
	}
	if len(list) != 1 || list[0].ExecutionID != "exec-1" {
		t.Fatalf("ListTeamExecutions: got %+v", list)
	}
	if len(list[0].Breakdown) != 0 {
		t.Fatal("list should return summaries without breakdown")
	}

	if _, err := st.GetTeamExecution(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTeamExecution missing: got %v", err)
	}
}
