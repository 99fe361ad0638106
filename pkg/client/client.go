// Package client provides a Go SDK for the WorkForce HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// Client calls the WorkForce HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string       // e.g. "http://localhost:8090"
	APIKey     string       // optional; sent as X-API-Key when set
	HTTPClient *http.Client // optional; nil uses http.DefaultClient
}

// New returns a client for the given base URL. APIKey is optional.
func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	return c.client().Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("api %s %s: %s", method, path, errBody.Error)
		}
		return fmt.Errorf("api %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Health returns the /healthz response.
func (c *Client) Health(ctx context.Context) (ok bool, err error) {
	var out struct {
		OK bool `json:"ok"`
	}
	err = c.doJSON(ctx, http.MethodGet, "/healthz", nil, &out)
	return out.OK, err
}

// ListTeams returns all teams.
func (c *Client) ListTeams(ctx context.Context) ([]models.Team, error) {
	var out []models.Team
	err := c.doJSON(ctx, http.MethodGet, "/api/teams", nil, &out)
	return out, err
}

// GetTeam returns a team by name.
func (c *Client) GetTeam(ctx context.Context, team string) (*models.Team, error) {
	var out models.Team
	err := c.doJSON(ctx, http.MethodGet, "/api/teams/"+url.PathEscape(team), nil, &out)
	return &out, err
}

// CreateTeam creates a team and returns it.
func (c *Client) CreateTeam(ctx context.Context, name, description string, monthlyBudget float64) (*models.Team, error) {
	var out models.Team
	err := c.doJSON(ctx, http.MethodPost, "/api/teams", map[string]any{
		"name": name, "description": description, "monthly_budget": monthlyBudget,
	}, &out)
	return &out, err
}

// DeleteTeam deletes a team by name.
func (c *Client) DeleteTeam(ctx context.Context, team string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/teams/"+url.PathEscape(team), nil, nil)
}

// SetTeamBudget replaces a team's monthly budget.
func (c *Client) SetTeamBudget(ctx context.Context, team string, monthlyBudget float64) error {
	return c.doJSON(ctx, http.MethodPut, "/api/teams/"+url.PathEscape(team)+"/budget",
		map[string]any{"monthly_budget": monthlyBudget}, nil)
}

// ListRoles returns the roles of a team in submission order.
func (c *Client) ListRoles(ctx context.Context, team string) ([]models.Role, error) {
	var out []models.Role
	err := c.doJSON(ctx, http.MethodGet, "/api/teams/"+url.PathEscape(team)+"/roles", nil, &out)
	return out, err
}

// CreateRole adds a role to a team and returns it with defaults applied.
func (c *Client) CreateRole(ctx context.Context, team string, role models.Role) (*models.Role, error) {
	var out models.Role
	err := c.doJSON(ctx, http.MethodPost, "/api/teams/"+url.PathEscape(team)+"/roles", role, &out)
	return &out, err
}

// SetRoleActive flips a role's active flag.
func (c *Client) SetRoleActive(ctx context.Context, team, title string, active bool) error {
	return c.doJSON(ctx, http.MethodPatch,
		"/api/teams/"+url.PathEscape(team)+"/roles/"+url.PathEscape(title),
		map[string]any{"active": active}, nil)
}

// ExecuteOptions are the optional knobs for Execute.
type ExecuteOptions struct {
	Preference     string   `json:"preference,omitempty"`
	PerTaskCap     *float64 `json:"per_task_cap,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
	Roles          []string `json:"roles,omitempty"`
}

// Execute runs a team against the input and returns the finished execution.
// Runs where every task failed still return the execution; inspect Status.
func (c *Client) Execute(ctx context.Context, team, input string, opts ExecuteOptions) (*models.TeamExecution, error) {
	body := struct {
		Input string `json:"input"`
		ExecuteOptions
	}{Input: input, ExecuteOptions: opts}
	var out models.TeamExecution
	err := c.doJSON(ctx, http.MethodPost, "/api/teams/"+url.PathEscape(team)+"/execute", body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListExecutions returns recent run summaries for a team (limit 0 = default).
func (c *Client) ListExecutions(ctx context.Context, team string, limit int) ([]models.TeamExecution, error) {
	path := "/api/teams/" + url.PathEscape(team) + "/executions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []models.TeamExecution
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// GetExecution returns one execution with its full per-task breakdown.
func (c *Client) GetExecution(ctx context.Context, executionID string) (*models.TeamExecution, error) {
	var out models.TeamExecution
	err := c.doJSON(ctx, http.MethodGet, "/api/executions/"+url.PathEscape(executionID), nil, &out)
	return &out, err
}
