// Package budget enforces spend ceilings: an advisory pre-flight guard before
// dispatch and a binding ledger commit after actual usage is known.
package budget

import "github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"

// Verdict is the guard's pre-flight answer for one estimated call.
type Verdict int

const (
	// Approved: the estimated cost fits the team budget and any per-task cap.
	Approved Verdict = iota
	// Downgrade: the candidate is too expensive; the caller must pick a
	// cheaper one.
	Downgrade
	// Reject: the team budget is exhausted; no call may be made at all.
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Approved:
		return "approved"
	case Downgrade:
		return "downgrade"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Guard checks estimated spend against the team ceiling and an optional
// per-task cap. The per-task cap is checked before the team remainder, so the
// stricter of the two wins. This check uses estimates only; the ledger commit
// after the call is the binding one.
type Guard struct{}

// Check applies the rules in order: exhausted team budget rejects outright,
// then the per-task cap, then the team remainder.
func (Guard) Check(team models.Team, estimatedCost float64, perTaskCap *float64) Verdict {
	remaining := team.Remaining()
	if remaining <= 0 {
		return Reject
	}
	if perTaskCap != nil && estimatedCost > *perTaskCap {
		return Downgrade
	}
	if estimatedCost > remaining {
		return Downgrade
	}
	return Approved
}

// Affordable reports whether a cost fits both the team remainder and the
// per-task cap. Used when re-ordering a candidate list after a downgrade.
func (Guard) Affordable(team models.Team, cost float64, perTaskCap *float64) bool {
	if cost > team.Remaining() {
		return false
	}
	if perTaskCap != nil && cost > *perTaskCap {
		return false
	}
	return true
}
