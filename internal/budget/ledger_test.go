package budget

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/store"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// spendStore fakes the two store methods the ledger touches.
type spendStore struct {
	store.Store // panics if anything else is called

	mu    sync.Mutex
	teams map[string]*models.Team
	adds  int
}

func newSpendStore(teams ...models.Team) *spendStore {
	s := &spendStore{teams: make(map[string]*models.Team)}
	for i := range teams {
		t := teams[i]
		s.teams[t.Name] = &t
	}
	return s
}

func (s *spendStore) AddTeamSpend(_ context.Context, teamName string, amount float64) (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamName]
	if !ok {
		return 0, 0, fmt.Errorf("team %q: %w", teamName, store.ErrNotFound)
	}
	s.adds++
	t.CurrentSpend += amount
	return t.CurrentSpend, t.MonthlyBudget, nil
}

func (s *spendStore) GetTeamByName(_ context.Context, name string) (models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[name]
	if !ok {
		return models.Team{}, fmt.Errorf("team %q: %w", name, store.ErrNotFound)
	}
	return *t, nil
}

func (s *spendStore) addCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adds
}

func TestLedgerCommit(t *testing.T) {
	t.Parallel()
	st := newSpendStore(models.Team{Name: "t1", MonthlyBudget: 10})
	l := NewLedger(st)
	ctx := context.Background()

	out, err := l.Commit(ctx, "t1", models.ExecutionResult{ResultID: "r1", Cost: 2})
	if err != nil || out != Committed {
		t.Fatalf("Commit: got %s, %v", out, err)
	}
	team, _ := l.Snapshot(ctx, "t1")
	if team.CurrentSpend != 2 {
		t.Fatalf("spend after commit: got %v", team.CurrentSpend)
	}
}

func TestLedgerCommit_idempotentByResultID(t *testing.T) {
	t.Parallel()
	st := newSpendStore(models.Team{Name: "t1", MonthlyBudget: 10})
	l := NewLedger(st)
	ctx := context.Background()

	res := models.ExecutionResult{ResultID: "r1", Cost: 3}
	if out, err := l.Commit(ctx, "t1", res); err != nil || out != Committed {
		t.Fatalf("first commit: got %s, %v", out, err)
	}
	if out, err := l.Commit(ctx, "t1", res); err != nil || out != Duplicate {
		t.Fatalf("second commit: got %s, %v", out, err)
	}
	team, _ := l.Snapshot(ctx, "t1")
	if team.CurrentSpend != 3 {
		t.Fatalf("spend counted twice: got %v", team.CurrentSpend)
	}
	if st.addCount() != 1 {
		t.Fatalf("store writes: got %d, want 1", st.addCount())
	}
}

func TestLedgerCommit_exceededWarns(t *testing.T) {
	t.Parallel()
	st := newSpendStore(models.Team{Name: "t1", MonthlyBudget: 5, CurrentSpend: 4})
	l := NewLedger(st)
	ctx := context.Background()

	out, err := l.Commit(ctx, "t1", models.ExecutionResult{ResultID: "r1", Cost: 2})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if out != Exceeded {
		t.Fatalf("Commit over budget: got %s, want exceeded", out)
	}
	// The overage is still committed: the call already ran.
	team, _ := l.Snapshot(ctx, "t1")
	if team.CurrentSpend != 6 {
		t.Fatalf("spend after exceeded commit: got %v", team.CurrentSpend)
	}
}

func TestLedgerCommit_negativeCostRejected(t *testing.T) {
	t.Parallel()
	l := NewLedger(newSpendStore(models.Team{Name: "t1", MonthlyBudget: 10}))
	if _, err := l.Commit(context.Background(), "t1", models.ExecutionResult{ResultID: "r1", Cost: -1}); err == nil {
		t.Fatal("expected error for negative cost")
	}
}

func TestLedgerCommit_concurrentDistinctResults(t *testing.T) {
	t.Parallel()
	st := newSpendStore(models.Team{Name: "t1", MonthlyBudget: 1000})
	l := NewLedger(st)
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := models.ExecutionResult{ResultID: fmt.Sprintf("r%d", i), Cost: 1}
			if _, err := l.Commit(ctx, "t1", res); err != nil {
				t.Errorf("commit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	team, _ := l.Snapshot(ctx, "t1")
	if team.CurrentSpend != n {
		t.Fatalf("concurrent commits lost updates: got %v, want %d", team.CurrentSpend, n)
	}
}

func TestLedgerCommit_concurrentSameResult(t *testing.T) {
	t.Parallel()
	st := newSpendStore(models.Team{Name: "t1", MonthlyBudget: 1000})
	l := NewLedger(st)
	ctx := context.Background()

	res := models.ExecutionResult{ResultID: "same", Cost: 5}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Commit(ctx, "t1", res)
		}()
	}
	wg.Wait()

	team, _ := l.Snapshot(ctx, "t1")
	if team.CurrentSpend != 5 {
		t.Fatalf("duplicate result committed more than once: got %v", team.CurrentSpend)
	}
}
