package budget

import (
	"context"
	"fmt"
	"sync"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/store"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// CommitOutcome reports what a ledger commit did.
type CommitOutcome int

const (
	// Committed: the spend was added and the team is still within budget.
	Committed CommitOutcome = iota
	// Duplicate: this result was already committed; spend unchanged.
	Duplicate
	// Exceeded: the spend was added (the call already happened and must be
	// paid for) but current_spend is now above the monthly budget. The
	// aggregator stops dispatching further tasks when it sees this.
	Exceeded
)

func (o CommitOutcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Duplicate:
		return "duplicate"
	case Exceeded:
		return "exceeded"
	default:
		return "unknown"
	}
}

// Ledger commits actual usage against a team's spend through the storage
// port. Commits for the same team are serialized so two concurrent tasks
// cannot both read a stale remainder; different teams commit independently.
// Commits are idempotent by ExecutionResult.ResultID.
type Ledger struct {
	store store.Store

	mu        sync.Mutex
	teams     map[string]*sync.Mutex
	committed map[string]struct{}
}

func NewLedger(st store.Store) *Ledger {
	return &Ledger{
		store:     st,
		teams:     make(map[string]*sync.Mutex),
		committed: make(map[string]struct{}),
	}
}

func (l *Ledger) teamLock(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.teams[name]
	if !ok {
		m = &sync.Mutex{}
		l.teams[name] = m
	}
	return m
}

// Commit adds the result's actual cost to the team's spend, exactly once per
// result. Zero-cost results are still recorded as committed so a retry cannot
// later double-count them should their cost be re-derived.
func (l *Ledger) Commit(ctx context.Context, teamName string, res models.ExecutionResult) (CommitOutcome, error) {
	if res.Cost < 0 {
		return Committed, fmt.Errorf("negative cost %.4f for result %s", res.Cost, res.ResultID)
	}
	lock := l.teamLock(teamName)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	_, dup := l.committed[res.ResultID]
	l.mu.Unlock()
	if dup {
		return Duplicate, nil
	}

	newSpend, budget, err := l.store.AddTeamSpend(ctx, teamName, res.Cost)
	if err != nil {
		return Committed, fmt.Errorf("commit spend for %s: %w", teamName, err)
	}

	l.mu.Lock()
	l.committed[res.ResultID] = struct{}{}
	l.mu.Unlock()

	if newSpend > budget {
		return Exceeded, nil
	}
	return Committed, nil
}

// Snapshot returns the team's current budget state for pre-flight checks.
func (l *Ledger) Snapshot(ctx context.Context, teamName string) (models.Team, error) {
	return l.store.GetTeamByName(ctx, teamName)
}
