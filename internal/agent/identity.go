package agent

import (
	"fmt"
	"os"
	"strings"
)

// Type represents the kind of actor interacting with the pipeline.
type Type string

const (
	// TypeOperator is the human (or scripted) operator driving the CLI.
	TypeOperator Type = "OPERATOR"
	// TypeAgent is an autonomous validation worker.
	TypeAgent Type = "AGENT"
)

// EnvAgentID names the environment variable an agent process sets to
// identify itself; unset means the caller is the operator.
const EnvAgentID = "GAUNTLET_AGENT_ID"

// Identity represents a parsed actor ID.
type Identity struct {
	Type   Type
	ID     string // "OPERATOR" for the operator, worker name for agents
	FullID string // Complete ID like "OPERATOR" or "AGENT-units-01"
}

// Current detects the caller's identity from the environment.
// Agent processes export GAUNTLET_AGENT_ID; everything else is the operator.
func Current() (*Identity, error) {
	raw := strings.TrimSpace(os.Getenv(EnvAgentID))
	if raw == "" {
		return &Identity{Type: TypeOperator, ID: "OPERATOR", FullID: "OPERATOR"}, nil
	}
	return Parse(raw)
}

// Parse parses an actor ID string like "OPERATOR" or "AGENT-units-01".
func Parse(actorID string) (*Identity, error) {
	if actorID == "OPERATOR" {
		return &Identity{Type: TypeOperator, ID: "OPERATOR", FullID: "OPERATOR"}, nil
	}

	parts := strings.SplitN(actorID, "-", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid actor ID format: %s (expected OPERATOR or AGENT-<name>)", actorID)
	}

	if Type(parts[0]) != TypeAgent {
		return nil, fmt.Errorf("unknown actor type: %s (expected OPERATOR or AGENT)", parts[0])
	}

	return &Identity{
		Type:   TypeAgent,
		ID:     parts[1],
		FullID: actorID,
	}, nil
}
