package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/store"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// Requires a reachable postgres; set DATABASE_URL to run.
func openTestStore(t *testing.T) store.Store {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}
	st, err := Open("")
	if err != nil {
		t.Fatalf("open postgres store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPostgresRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	name := fmt.Sprintf("pgtest-%d", time.Now().UnixNano())

	team, err := st.CreateTeam(ctx, name, "postgres roundtrip", 10)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	defer func() { _ = st.DeleteTeam(ctx, name) }()

	if _, err := st.CreateRole(ctx, name, models.Role{Title: "Researcher", Tools: []string{"search"}}); err != nil {
		t.Fatalf("create role: %v", err)
	}
	roles, err := st.ListRoles(ctx, name)
	if err != nil || len(roles) != 1 || !roles[0].Active {
		t.Fatalf("list roles: %+v, %v", roles, err)
	}

	spend, budget, err := st.AddTeamSpend(ctx, name, 0.25)
	if err != nil || spend != 0.25 || budget != 10 {
		t.Fatalf("add spend: %v %v %v", spend, budget, err)
	}

	exec := models.TeamExecution{
		ExecutionID: fmt.Sprintf("exec-%d", time.Now().UnixNano()),
		TeamID:      team.TeamID,
		TeamName:    name,
		Status:      models.StatusRunning,
		Input:       "input",
		Preference:  models.PreferBalanced,
		StartedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := st.CreateTeamExecution(ctx, exec); err != nil {
		t.Fatalf("create execution: %v", err)
	}
	out := models.TaskOutcome{
		Role:   roles[0],
		Status: models.TaskCompleted,
		Result: models.ExecutionResult{ResultID: "r1", Provider: "ollama/mistral", Success: true},
	}
	if err := st.AppendTaskExecution(ctx, exec.ExecutionID, 0, out); err != nil {
		t.Fatalf("append outcome: %v", err)
	}
	exec.Status = models.StatusCompleted
	now := time.Now().UTC().Truncate(time.Second)
	exec.CompletedAt = &now
	if err := st.FinalizeTeamExecution(ctx, exec); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	got, err := st.GetTeamExecution(ctx, exec.ExecutionID)
	if err != nil {
		t.Fatalf("get execution: %v", err)
	}
	if got.Status != models.StatusCompleted || len(got.Breakdown) != 1 {
		t.Fatalf("execution roundtrip: %+v", got)
	}

	if _, err := st.GetTeamByName(ctx, "definitely-missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing team: got %v", err)
	}
}
