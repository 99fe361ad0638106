package models

// Team and team-execution statuses used throughout the codebase.
const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Per-task statuses inside a team execution.
const (
	TaskCompleted = "completed"
	TaskFailed    = "failed"
	TaskSkipped   = "skipped"
)

// Expertise levels for roles.
const (
	ExpertiseJunior       = "junior"
	ExpertiseIntermediate = "intermediate"
	ExpertiseSenior       = "senior"
	ExpertiseExpert       = "expert"
)

// Quality preferences shaping the routing table lookup.
const (
	PreferFast          = "fast"
	PreferBalanced      = "balanced"
	PreferPremium       = "premium"
	PreferCostOptimized = "cost_optimized"
)

// ValidPreference reports whether p is a known quality preference.
func ValidPreference(p string) bool {
	switch p {
	case PreferFast, PreferBalanced, PreferPremium, PreferCostOptimized:
		return true
	default:
		return false
	}
}

// Default limits.
const (
	DefaultMaxRequestBodyBytes = 1 << 20 // 1 MiB
	DefaultExecutionListLimit  = 100
	DefaultSSEChannelBuffer    = 256
	DefaultMaxConcurrentCalls  = 8
)
