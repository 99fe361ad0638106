package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// Validation errors: rejected before any provider call is made.
var (
	ErrNoActiveRoles = errors.New("team has no active roles")
	ErrEmptyInput    = errors.New("run input is empty")
)

// ErrBudgetExhausted is returned when the budget guard rejects the run before
// dispatch; no cost is incurred.
var ErrBudgetExhausted = errors.New("team budget exhausted")

// ErrRunFailed marks a run in which every task failed. The caller still
// receives the full TeamExecution with per-task detail; this error is the
// run-level summary, never a replacement for the breakdown.
var ErrRunFailed = errors.New("all tasks failed")

// failureSummary condenses per-task errors into one line for the execution
// record. Skipped tasks are counted, not enumerated.
func failureSummary(outcomes []models.TaskOutcome) string {
	var parts []string
	skipped := 0
	for _, o := range outcomes {
		switch o.Status {
		case models.TaskFailed:
			parts = append(parts, o.Role.Title+": "+o.Result.Error)
		case models.TaskSkipped:
			skipped++
		}
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d task(s) skipped", skipped))
	}
	if len(parts) == 0 {
		return ErrRunFailed.Error()
	}
	return strings.Join(parts, "; ")
}
