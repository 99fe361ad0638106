// Package engine executes team runs: it fans one task out per active role,
// routes each task through the policy and fallback chain, commits actual
// usage to the ledger, and folds everything into a single TeamExecution.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/budget"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/crew"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/otel"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/provider"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/routing"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/store"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// Publisher receives engine lifecycle events (e.g. the HTTP API's SSE hub).
type Publisher interface {
	PublishJSON(v any)
}

// Options configures one team run.
type Options struct {
	Preference string        // quality preference; defaults to balanced
	PerTaskCap *float64      // optional per-task spend ceiling
	Timeout    time.Duration // run-level timeout; 0 = no limit
	Roles      []string      // optional subset of role titles; empty = all active roles
}

// Engine is the run coordinator. The semaphore bounds in-flight provider
// calls across all runs, not per run.
type Engine struct {
	Store    store.Store
	Registry *provider.Registry
	Policy   *routing.Policy
	Ledger   *budget.Ledger
	Executor *Executor
	Events   Publisher // optional

	sem chan struct{}
}

// New wires an engine over a store and a provider registry.
func New(st store.Store, reg *provider.Registry, maxConcurrent int, callTimeout time.Duration) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = models.DefaultMaxConcurrentCalls
	}
	return &Engine{
		Store:    st,
		Registry: reg,
		Policy:   &routing.Policy{Providers: reg},
		Ledger:   budget.NewLedger(st),
		Executor: &Executor{Registry: reg, CallTimeout: callTimeout},
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// Run executes one team run. Whenever any task was dispatched the returned
// TeamExecution carries the full per-task breakdown, even on total failure;
// ErrRunFailed is the run-level summary in that case.
func (e *Engine) Run(ctx context.Context, teamName, input string, opts Options) (*models.TeamExecution, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	pref := opts.Preference
	if !models.ValidPreference(pref) {
		pref = models.PreferBalanced
	}

	team, err := e.Store.GetTeamByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	roles, err := e.Store.ListRoles(ctx, teamName)
	if err != nil {
		return nil, err
	}
	active := filterRoles(roles, opts.Roles)
	if len(active) == 0 {
		return nil, ErrNoActiveRoles
	}

	exec := &models.TeamExecution{
		ExecutionID: uuid.NewString(),
		TeamID:      team.TeamID,
		TeamName:    team.Name,
		Status:      models.StatusRunning,
		Input:       input,
		Preference:  pref,
		StartedAt:   time.Now().UTC(),
	}

	// Fatal precondition: nothing may be dispatched against an exhausted
	// budget. The run is recorded as failed with zero cost incurred.
	if team.Remaining() <= 0 {
		exec.Status = models.StatusFailed
		exec.Error = ErrBudgetExhausted.Error()
		now := time.Now().UTC()
		exec.CompletedAt = &now
		if err := e.Store.CreateTeamExecution(ctx, *exec); err != nil {
			slog.Error("record rejected run failed", "team", team.Name, "err", err)
		} else {
			_ = e.Store.FinalizeTeamExecution(ctx, *exec)
		}
		return exec, ErrBudgetExhausted
	}

	if err := e.Store.CreateTeamExecution(ctx, *exec); err != nil {
		return nil, fmt.Errorf("create team execution: %w", err)
	}
	_ = e.Store.SetTeamStatus(ctx, team.Name, models.StatusRunning)
	e.publish(map[string]any{"type": "run_started", "team": team.Name, "execution_id": exec.ExecutionID})

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	outcomes := make([]models.TaskOutcome, len(active))
	var mu sync.Mutex
	var exhausted atomic.Bool

	// Dependency chains run sequentially, each task feeding its output to
	// its dependents; independent chains run in parallel.
	var wg sync.WaitGroup
	for _, chain := range buildChains(active) {
		wg.Add(1)
		go func(chain []int) {
			defer wg.Done()
			chainContext := ""
			for _, idx := range chain {
				out := e.runTask(runCtx, team, exec.ExecutionID, active[idx], idx, input, chainContext, pref, opts.PerTaskCap, &exhausted)
				mu.Lock()
				outcomes[idx] = out
				mu.Unlock()
				if out.Status == models.TaskCompleted {
					chainContext = out.Result.Content
				}
			}
		}(chain)
	}
	wg.Wait()

	exec.Breakdown = outcomes
	var succeeded, failed int
	for _, o := range outcomes {
		exec.TotalCost += o.Result.Cost
		exec.TotalTokens += o.Result.Tokens
		switch o.Status {
		case models.TaskCompleted:
			succeeded++
		case models.TaskFailed:
			failed++
		}
	}
	if succeeded > 0 {
		exec.Status = models.StatusCompleted
	} else {
		exec.Status = models.StatusFailed
		exec.Error = failureSummary(outcomes)
	}
	now := time.Now().UTC()
	exec.CompletedAt = &now

	// Finalization must land even if the caller's context expired mid-run.
	finCtx := context.WithoutCancel(ctx)
	if err := e.Store.FinalizeTeamExecution(finCtx, *exec); err != nil {
		slog.Error("finalize team execution failed", "execution_id", exec.ExecutionID, "err", err)
	}
	_ = e.Store.SetTeamStatus(finCtx, team.Name, exec.Status)
	otel.RecordRun(finCtx, team.Name, exec.Status, now.Sub(exec.StartedAt))
	e.publish(map[string]any{
		"type": "run_completed", "team": team.Name, "execution_id": exec.ExecutionID,
		"status": exec.Status, "total_cost": exec.TotalCost,
	})

	if succeeded == 0 {
		return exec, ErrRunFailed
	}
	return exec, nil
}

// runTask routes, executes, and commits a single task. It never returns an
// error: per-task failures are recorded in the outcome so one failing role
// does not abort independent concurrent roles.
func (e *Engine) runTask(ctx context.Context, team models.Team, executionID string, role models.Role, idx int, input, chainContext, pref string, perTaskCap *float64, exhausted *atomic.Bool) models.TaskOutcome {
	out := models.TaskOutcome{Role: role}

	if exhausted.Load() {
		out.Status = models.TaskSkipped
		out.Result = models.ExecutionResult{ResultID: uuid.NewString(), Error: "skipped: team budget exhausted"}
		e.record(ctx, executionID, idx, out)
		return out
	}
	if ctx.Err() != nil {
		out.Status = models.TaskFailed
		out.Result = models.ExecutionResult{ResultID: uuid.NewString(), Error: "run timeout: " + ctx.Err().Error()}
		e.record(context.WithoutCancel(ctx), executionID, idx, out)
		return out
	}

	prompt := crew.NewTask(role).Prompt(input, chainContext)
	req := models.TaskRequest{Role: role, Prompt: prompt, Context: chainContext, PerTaskCap: perTaskCap}

	// Fresh budget snapshot: concurrent tasks may have committed spend since
	// the run started.
	snapshot, err := e.Ledger.Snapshot(ctx, team.Name)
	if err != nil {
		snapshot = team
	}
	decision := e.Policy.Route(req, snapshot, pref)
	out.Decision = decision
	otel.RecordRoutingDecision(ctx, decision.Complexity, decision.Provider)

	if len(decision.Candidates) == 0 {
		if snapshot.Remaining() <= 0 {
			exhausted.Store(true)
		}
		out.Status = models.TaskFailed
		out.Result = models.ExecutionResult{ResultID: uuid.NewString(), Error: decision.Reasoning}
		e.record(ctx, executionID, idx, out)
		return out
	}

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		out.Status = models.TaskFailed
		out.Result = models.ExecutionResult{ResultID: uuid.NewString(), Error: "run timeout: " + ctx.Err().Error()}
		e.record(context.WithoutCancel(ctx), executionID, idx, out)
		return out
	}
	result := e.Executor.Execute(ctx, decision, prompt)
	<-e.sem

	// The call already happened; its cost must be committed even if the run
	// context expired while it was in flight.
	commitCtx := context.WithoutCancel(ctx)
	commit, err := e.Ledger.Commit(commitCtx, team.Name, result)
	if err != nil {
		slog.Error("ledger commit failed", "team", team.Name, "result_id", result.ResultID, "err", err)
	}
	if commit == budget.Exceeded {
		exhausted.Store(true)
		slog.Warn("team budget now exceeded", "team", team.Name, "execution_id", executionID)
	}
	otel.RecordCost(commitCtx, team.Name, result.Provider, result.Cost)

	out.Result = result
	if result.Success {
		out.Status = models.TaskCompleted
	} else {
		out.Status = models.TaskFailed
	}
	e.record(commitCtx, executionID, idx, out)
	e.publish(map[string]any{
		"type": "task_completed", "team": team.Name, "execution_id": executionID,
		"role": role.Title, "status": out.Status, "provider": result.Provider, "cost": result.Cost,
	})
	return out
}

func (e *Engine) record(ctx context.Context, executionID string, position int, out models.TaskOutcome) {
	if err := e.Store.AppendTaskExecution(ctx, executionID, position, out); err != nil {
		slog.Error("record task execution failed", "execution_id", executionID, "role", out.Role.Title, "err", err)
	}
}

func (e *Engine) publish(v any) {
	if e.Events != nil {
		e.Events.PublishJSON(v)
	}
}

// filterRoles keeps active roles, optionally restricted to the given titles,
// preserving submission order.
func filterRoles(roles []models.Role, titles []string) []models.Role {
	want := make(map[string]bool, len(titles))
	for _, t := range titles {
		want[t] = true
	}
	var out []models.Role
	for _, r := range roles {
		if !r.Active {
			continue
		}
		if len(titles) > 0 && !want[r.Title] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// buildChains groups task indexes into dependency chains. A role may depend
// on an earlier role's output (by title); dependents are appended after their
// dependency in submission order. Forward or unknown references are treated
// as independent, which also rules out cycles.
func buildChains(roles []models.Role) [][]int {
	index := make(map[string]int, len(roles))
	for i, r := range roles {
		index[r.Title] = i
	}
	children := make(map[int][]int)
	isChild := make([]bool, len(roles))
	for i, r := range roles {
		if r.DependsOn == "" {
			continue
		}
		dep, ok := index[r.DependsOn]
		if !ok || dep >= i {
			continue
		}
		children[dep] = append(children[dep], i)
		isChild[i] = true
	}

	var chains [][]int
	for i := range roles {
		if isChild[i] {
			continue
		}
		var chain []int
		var walk func(int)
		walk = func(idx int) {
			chain = append(chain, idx)
			for _, c := range children[idx] {
				walk(c)
			}
		}
		walk(i)
		chains = append(chains, chain)
	}
	return chains
}
