// Package persistence contains adapters that bridge environment-level
// concerns into the secondary ports.
package persistence

import (
	"context"

	"github.com/example/gauntlet/internal/agent"
	"github.com/example/gauntlet/internal/ports/secondary"
)

// AgentIdentityProviderAdapter wraps the agent package to implement AgentIdentityProvider.
type AgentIdentityProviderAdapter struct{}

// NewAgentIdentityProvider creates a new AgentIdentityProviderAdapter.
func NewAgentIdentityProvider() *AgentIdentityProviderAdapter {
	return &AgentIdentityProviderAdapter{}
}

// GetCurrentIdentity returns the identity of the current actor.
func (p *AgentIdentityProviderAdapter) GetCurrentIdentity(ctx context.Context) (*secondary.AgentIdentity, error) {
	identity, err := agent.Current()
	if err != nil {
		return nil, err
	}

	return &secondary.AgentIdentity{
		Type:   secondary.AgentType(identity.Type),
		ID:     identity.ID,
		FullID: identity.FullID,
	}, nil
}

// Ensure AgentIdentityProviderAdapter implements the interface
var _ secondary.AgentIdentityProvider = (*AgentIdentityProviderAdapter)(nil)
