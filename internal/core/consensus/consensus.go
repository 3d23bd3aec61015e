// Package consensus computes stage verdicts from accumulated findings.
// Evaluate is a pure function: the same finding set, thresholds, and
// elapsed time always produce the same outcome, so it is safe to re-run
// on every finding arrival without coordination.
package consensus

import (
	"sort"
	"time"

	"github.com/example/gauntlet/internal/core/stage"
)

// Verdict is a single agent's (or the aggregate's) judgment.
type Verdict string

const (
	Validated   Verdict = "validated"
	Invalidated Verdict = "invalidated"
	Uncertain   Verdict = "uncertain"
)

// Rule names which adaptive-consensus rule produced an outcome.
type Rule string

const (
	RuleFull     Rule = "full"
	RulePartial  Rule = "partial-weighted"
	RuleMinimum  Rule = "minimum"
	RuleDeferred Rule = "deferred"
)

// Confidence caps applied when consensus forms on reduced evidence.
const (
	partialConfidenceCap = 0.8
	minimumConfidenceCap = 0.6
)

// lowConsistencyCutoff: a role whose validators disagree more than they
// agree carries half weight in the outer vote.
const lowConsistencyCutoff = 0.5

// Finding is one agent's submitted judgment for a role.
type Finding struct {
	Role       string
	AgentID    string
	Verdict    Verdict
	Confidence float64 // [0,1]
	Evidence   []string
	Parallel   bool
}

// RoleVote is the pre-aggregated effective vote for one role.
type RoleVote struct {
	Role string
	// Verdict is the confidence-weighted plurality among the role's
	// findings; ties break toward Uncertain.
	Verdict Verdict
	// Weight is the mean confidence across the role's findings, halved
	// when internal consistency is low.
	Weight float64
	// InternalConsistency is the fraction of same-role findings agreeing
	// with the role verdict.
	InternalConsistency float64
	Evidence            []string
}

// Outcome is the aggregate result of evaluating a finding set.
type Outcome struct {
	Verdict            Verdict
	Confidence         float64
	Rule               Rule
	ParticipatingRoles []string
	RoleVotes          []RoleVote
	Elapsed            time.Duration
}

// Decisive reports whether the outcome carries a verdict.
func (o Outcome) Decisive() bool {
	return o.Rule != RuleDeferred
}

// Evaluate aggregates findings for one (item, stage) attempt under the
// stage's thresholds. Rule preference: full, then partial-weighted, then
// minimum, then deferred.
func Evaluate(findings []Finding, th stage.Thresholds, elapsed time.Duration) Outcome {
	votes := aggregateByRole(findings)
	roles := make([]string, 0, len(votes))
	for _, v := range votes {
		roles = append(roles, v.Role)
	}
	sort.Strings(roles)

	// A deferred outcome still carries a verdict: uncertain is what the
	// store and stage history record when no rule fires.
	out := Outcome{
		Verdict:            Uncertain,
		Rule:               RuleDeferred,
		ParticipatingRoles: roles,
		RoleVotes:          votes,
		Elapsed:            elapsed,
	}

	confCap := 1.0
	switch {
	case len(votes) >= th.RequiredRoleCount:
		out.Rule = RuleFull
	case len(votes) >= th.PartialThreshold && elapsed > th.PartialTimeWindow:
		out.Rule = RulePartial
		confCap = partialConfidenceCap
	case len(votes) >= th.MinimumThreshold && elapsed > th.MinimumTimeWindow:
		out.Rule = RuleMinimum
		confCap = minimumConfidenceCap
	default:
		return out
	}

	out.Verdict, out.Confidence = weightedVote(votes)
	if out.Confidence > confCap {
		out.Confidence = confCap
	}
	return out
}

// aggregateByRole folds multiple findings per role (primary + parallel
// validators) into one effective vote each, sorted by role name.
func aggregateByRole(findings []Finding) []RoleVote {
	byRole := make(map[string][]Finding)
	for _, f := range findings {
		byRole[f.Role] = append(byRole[f.Role], f)
	}

	roles := make([]string, 0, len(byRole))
	for role := range byRole {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	votes := make([]RoleVote, 0, len(roles))
	for _, role := range roles {
		group := byRole[role]
		verdict := pluralityVerdict(group)

		agreeing := 0
		meanConf := 0.0
		evidence := make([]string, 0)
		seen := make(map[string]struct{})
		for _, f := range group {
			if f.Verdict == verdict {
				agreeing++
			}
			meanConf += f.Confidence
			for _, ev := range f.Evidence {
				if _, dup := seen[ev]; dup {
					continue
				}
				seen[ev] = struct{}{}
				evidence = append(evidence, ev)
			}
		}
		meanConf /= float64(len(group))
		consistency := float64(agreeing) / float64(len(group))

		weight := meanConf
		if consistency < lowConsistencyCutoff {
			weight /= 2
		}

		votes = append(votes, RoleVote{
			Role:                role,
			Verdict:             verdict,
			Weight:              weight,
			InternalConsistency: consistency,
			Evidence:            evidence,
		})
	}
	return votes
}

// pluralityVerdict picks the confidence-weighted plurality verdict within
// one role's findings; any tie collapses to Uncertain.
func pluralityVerdict(group []Finding) Verdict {
	weights := map[Verdict]float64{}
	for _, f := range group {
		weights[f.Verdict] += f.Confidence
	}
	return winner(weights)
}

// weightedVote runs the outer majority-by-confidence-weighted vote across
// role votes. Confidence is the winning share of total weight.
func weightedVote(votes []RoleVote) (Verdict, float64) {
	weights := map[Verdict]float64{}
	total := 0.0
	for _, v := range votes {
		weights[v.Verdict] += v.Weight
		total += v.Weight
	}
	verdict := winner(weights)
	if total == 0 {
		return verdict, 0
	}
	return verdict, weights[verdict] / total
}

func winner(weights map[Verdict]float64) Verdict {
	best := Uncertain
	bestWeight := weights[Uncertain]
	tied := false
	for _, v := range []Verdict{Validated, Invalidated} {
		switch w := weights[v]; {
		case w > bestWeight:
			best, bestWeight, tied = v, w, false
		case w == bestWeight && w > 0 && v != best:
			tied = true
		}
	}
	if tied {
		return Uncertain
	}
	return best
}
