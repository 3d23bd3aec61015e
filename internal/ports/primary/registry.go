package primary

import "context"

// RegistryService defines the primary port for agent slot coordination.
// Both in-process role runners and external agent processes go through
// this interface, so the mutual exclusion rules hold for either.
type RegistryService interface {
	// ClaimSlot claims the (item, stage, role) validation slot for an
	// agent. At most one active claim per slot exists at any time.
	ClaimSlot(ctx context.Context, req ClaimSlotRequest) (*ClaimSlotResponse, error)

	// Heartbeat renews a claim's liveness window.
	Heartbeat(ctx context.Context, slotToken string) error

	// ReleaseSlot releases a claim without submitting a finding.
	ReleaseSlot(ctx context.Context, slotToken string) error

	// SubmitFinding records a finding and releases the claim. Findings
	// arriving through an expired claim are stored flagged as parallel
	// rather than discarded.
	SubmitFinding(ctx context.Context, req SubmitFindingRequest) (*SubmitFindingResponse, error)

	// AvailableRoles lists the roles of an item's current stage that
	// have no active claim.
	AvailableRoles(ctx context.Context, itemID string) (*AvailableRolesResponse, error)

	// ListClaims lists claims with optional filters.
	ListClaims(ctx context.Context, filters ClaimFilters) ([]*Claim, error)
}

// ClaimSlotRequest contains parameters for claiming a validation slot.
type ClaimSlotRequest struct {
	ItemID  string
	Role    string
	AgentID string
}

// ClaimSlotResponse contains the result of a successful claim.
type ClaimSlotResponse struct {
	SlotToken        string
	Stage            int
	StageName        string
	PayloadRef       string
	HeartbeatSeconds int // renew at least this often
}

// SubmitFindingRequest contains parameters for submitting a finding.
type SubmitFindingRequest struct {
	SlotToken  string
	Verdict    string
	Confidence float64
	Evidence   []string
}

// SubmitFindingResponse contains the result of submitting a finding.
type SubmitFindingResponse struct {
	FindingID string
	Parallel  bool // stored without an active claim
}

// Claim represents a slot claim at the port boundary.
type Claim struct {
	SlotToken     string
	ItemID        string
	Stage         int
	StageName     string
	Role          string
	AgentID       string
	Status        string
	ClaimedAt     string
	LastHeartbeat string
}

// ClaimFilters contains filter options for listing claims.
type ClaimFilters struct {
	ItemID string
	Stage  int // -1 means any stage
	Status string
	Limit  int
}

// AvailableRolesResponse lists the open roles for an item's current stage.
type AvailableRolesResponse struct {
	ItemID    string
	Stage     int
	StageName string
	Roles     []string
}
