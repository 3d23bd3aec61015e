// Package stage defines the static review pipeline: the ordered stage
// catalog, the role vocabulary, and the per-stage consensus thresholds.
// Everything here is pure configuration; nothing mutates at runtime.
package stage

import (
	"fmt"
	"time"
)

// Count is the number of review stages an item passes through.
const Count = 8

// Role names a check-type an agent can perform within a stage.
const (
	RoleLiterature   = "literature"
	RoleMethodology  = "methodology"
	RoleStatistics   = "statistics"
	RoleUnits        = "units"
	RoleConservation = "conservation"
	RoleSimulation   = "simulation"
	RoleLogic        = "logic"
	RoleProvenance   = "provenance"
)

// Thresholds holds the adaptive-consensus tuning for one stage.
// All values are externally supplied; Default covers the reference design.
type Thresholds struct {
	RequiredRoleCount int
	PartialThreshold  int
	MinimumThreshold  int
	PartialTimeWindow time.Duration
	MinimumTimeWindow time.Duration
	AbsoluteTimeout   time.Duration
	HeartbeatTimeout  time.Duration
	RetryLimit        int
}

// DefaultThresholds returns the reference tuning: full consensus at 6
// roles, partial at 4 after 480s, minimum at 3 after 540s, 600s absolute
// timeout, 60s heartbeats, one retry.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RequiredRoleCount: 6,
		PartialThreshold:  4,
		MinimumThreshold:  3,
		PartialTimeWindow: 480 * time.Second,
		MinimumTimeWindow: 540 * time.Second,
		AbsoluteTimeout:   600 * time.Second,
		HeartbeatTimeout:  60 * time.Second,
		RetryLimit:        1,
	}
}

// Validate checks the thresholds for internal consistency.
func (t Thresholds) Validate() error {
	if t.RequiredRoleCount <= 0 {
		return fmt.Errorf("required role count must be > 0")
	}
	if t.PartialThreshold <= 0 || t.PartialThreshold > t.RequiredRoleCount {
		return fmt.Errorf("partial threshold must be in 1..%d", t.RequiredRoleCount)
	}
	if t.MinimumThreshold <= 0 || t.MinimumThreshold > t.PartialThreshold {
		return fmt.Errorf("minimum threshold must be in 1..%d", t.PartialThreshold)
	}
	if t.PartialTimeWindow <= 0 || t.MinimumTimeWindow < t.PartialTimeWindow {
		return fmt.Errorf("time windows must satisfy 0 < partial <= minimum")
	}
	if t.AbsoluteTimeout < t.MinimumTimeWindow {
		return fmt.Errorf("absolute timeout must be >= minimum time window")
	}
	if t.HeartbeatTimeout <= 0 || t.HeartbeatTimeout > t.AbsoluteTimeout {
		return fmt.Errorf("heartbeat timeout must be in (0, absolute timeout]")
	}
	if t.RetryLimit < 0 {
		return fmt.Errorf("retry limit must be >= 0")
	}
	return nil
}

// Stage is one ordinal phase of the review pipeline.
type Stage struct {
	Ordinal int
	Name    string
	// Roles is the required check-set: the distinct roles that must be
	// covered before full consensus is possible.
	Roles []string
}

// catalog is the fixed 8-stage review sequence. Required role counts per
// stage come from the thresholds, capped by the stage's role set.
var catalog = [Count]Stage{
	{Ordinal: 0, Name: "intake-screen", Roles: []string{RoleProvenance, RoleLiterature, RoleLogic}},
	{Ordinal: 1, Name: "content-review", Roles: []string{RoleLiterature, RoleMethodology, RoleLogic, RoleProvenance}},
	{Ordinal: 2, Name: "claims-audit", Roles: []string{RoleLogic, RoleLiterature, RoleMethodology, RoleStatistics}},
	{Ordinal: 3, Name: "dimensional-check", Roles: []string{RoleUnits, RoleConservation, RoleLogic}},
	{Ordinal: 4, Name: "numerical-sanity", Roles: []string{RoleUnits, RoleConservation, RoleStatistics, RoleSimulation, RoleLogic}},
	{Ordinal: 5, Name: "cross-method", Roles: []string{RoleSimulation, RoleStatistics, RoleMethodology, RoleConservation, RoleUnits, RoleLogic}},
	{Ordinal: 6, Name: "replication-review", Roles: []string{RoleSimulation, RoleStatistics, RoleMethodology, RoleProvenance}},
	{Ordinal: 7, Name: "final-adjudication", Roles: []string{RoleLiterature, RoleMethodology, RoleStatistics, RoleSimulation, RoleLogic, RoleProvenance}},
}

// Get returns the stage at the given ordinal.
func Get(ordinal int) (Stage, error) {
	if ordinal < 0 || ordinal >= Count {
		return Stage{}, fmt.Errorf("stage ordinal %d out of range 0..%d", ordinal, Count-1)
	}
	return catalog[ordinal], nil
}

// All returns the full catalog in order.
func All() []Stage {
	out := make([]Stage, Count)
	copy(out, catalog[:])
	return out
}

// AllRoles returns every role name, in a stable order.
func AllRoles() []string {
	return []string{
		RoleLiterature, RoleMethodology, RoleStatistics, RoleUnits,
		RoleConservation, RoleSimulation, RoleLogic, RoleProvenance,
	}
}

// Name returns the stage name for an ordinal, or "?" when out of range.
func Name(ordinal int) string {
	if ordinal < 0 || ordinal >= Count {
		return "?"
	}
	return catalog[ordinal].Name
}

// HasRole reports whether role belongs to the stage's required check-set.
func (s Stage) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// EffectiveThresholds caps the configured role counts at the stage's role
// set size so a 3-role stage can still reach full consensus.
func (s Stage) EffectiveThresholds(t Thresholds) Thresholds {
	n := len(s.Roles)
	if t.RequiredRoleCount > n {
		t.RequiredRoleCount = n
	}
	if t.PartialThreshold > t.RequiredRoleCount {
		t.PartialThreshold = t.RequiredRoleCount
	}
	if t.MinimumThreshold > t.PartialThreshold {
		t.MinimumThreshold = t.PartialThreshold
	}
	return t
}
