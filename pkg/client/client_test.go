package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/httpapi"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/provider"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/store"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

func newTestClient(t *testing.T, apiKey string) *Client {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	stub := &provider.Stub{Reply: "done", Tokens: 20, CostEach: 0.0005}
	reg := provider.NewRegistry()
	for _, id := range []string{
		provider.LocalMistral,
		provider.OpenAIGPT4,
		provider.OpenAIGPT35,
		provider.AnthropicHaiku,
	} {
		reg.Register(id, stub)
	}

	app, err := httpapi.NewApp(httpapi.ServerOptions{Store: st, Registry: reg, APIKey: apiKey})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv := httptest.NewServer(app.Server.Handler)
	t.Cleanup(func() {
		srv.Close()
		st.Close()
	})
	return New(srv.URL, apiKey)
}

func TestClientRoundTrip(t *testing.T) {
	c := newTestClient(t, "")
	ctx := context.Background()

	ok, err := c.Health(ctx)
	if err != nil || !ok {
		t.Fatalf("Health: %v, %v", ok, err)
	}

	team, err := c.CreateTeam(ctx, "crew", "api test", 10)
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if team.Name != "crew" || team.MonthlyBudget != 10 {
		t.Fatalf("created team: %+v", team)
	}

	if _, err := c.CreateRole(ctx, "crew", models.Role{Title: "Researcher"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	roles, err := c.ListRoles(ctx, "crew")
	if err != nil || len(roles) != 1 {
		t.Fatalf("ListRoles: %+v, %v", roles, err)
	}

	exec, err := c.Execute(ctx, "crew", "summarize the meeting notes", ExecuteOptions{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if exec.Status != models.StatusCompleted || len(exec.Breakdown) != 1 {
		t.Fatalf("execution: %+v", exec)
	}

	got, err := c.GetExecution(ctx, exec.ExecutionID)
	if err != nil || got.ExecutionID != exec.ExecutionID {
		t.Fatalf("GetExecution: %+v, %v", got, err)
	}
	list, err := c.ListExecutions(ctx, "crew", 5)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListExecutions: %+v, %v", list, err)
	}

	if err := c.SetTeamBudget(ctx, "crew", 20); err != nil {
		t.Fatalf("SetTeamBudget: %v", err)
	}
	if err := c.SetRoleActive(ctx, "crew", "Researcher", false); err != nil {
		t.Fatalf("SetRoleActive: %v", err)
	}
	if err := c.DeleteTeam(ctx, "crew"); err != nil {
		t.Fatalf("DeleteTeam: %v", err)
	}
	if _, err := c.GetTeam(ctx, "crew"); err == nil {
		t.Fatal("deleted team still retrievable")
	}
}

func TestClientSendsAPIKey(t *testing.T) {
	c := newTestClient(t, "secret")
	if _, err := c.ListTeams(context.Background()); err != nil {
		t.Fatalf("authorized request failed: %v", err)
	}
	c.APIKey = "wrong"
	if _, err := c.ListTeams(context.Background()); err == nil {
		t.Fatal("expected unauthorized error")
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	c := newTestClient(t, "")
	_, err := c.GetTeam(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for missing team")
	}
}
