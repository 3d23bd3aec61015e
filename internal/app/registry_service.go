package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/core/consensus"
	"github.com/example/gauntlet/internal/core/stage"
	"github.com/example/gauntlet/internal/logging"
	"github.com/example/gauntlet/internal/ports/primary"
	"github.com/example/gauntlet/internal/ports/secondary"
)

// RegistryServiceImpl implements the RegistryService interface. In-process
// role runners and external agent processes both coordinate through it, so
// the slot rules hold no matter where an agent lives.
type RegistryServiceImpl struct {
	itemRepo    secondary.ItemRepository
	claimRepo   secondary.ClaimRepository
	findingRepo secondary.FindingRepository
	clock       secondary.Clock
	cfg         *config.Config
	audit       *auditor
	log         *slog.Logger
}

// NewRegistryService creates a new RegistryService with injected dependencies.
func NewRegistryService(
	itemRepo secondary.ItemRepository,
	claimRepo secondary.ClaimRepository,
	findingRepo secondary.FindingRepository,
	clock secondary.Clock,
	cfg *config.Config,
	auditRepo secondary.AuditLogRepository,
	identity secondary.AgentIdentityProvider,
) *RegistryServiceImpl {
	return &RegistryServiceImpl{
		itemRepo:    itemRepo,
		claimRepo:   claimRepo,
		findingRepo: findingRepo,
		clock:       clock,
		cfg:         cfg,
		audit:       newAuditor(auditRepo, identity),
		log:         logging.New("registry"),
	}
}

// ClaimSlot claims the (item, current stage, role) validation slot.
func (s *RegistryServiceImpl) ClaimSlot(ctx context.Context, req primary.ClaimSlotRequest) (*primary.ClaimSlotResponse, error) {
	if req.AgentID == "" {
		return nil, fmt.Errorf("agent ID is required")
	}

	item, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.State != "active" {
		return nil, fmt.Errorf("item %s is %s, nothing to validate", item.ID, item.State)
	}

	st, err := stage.Get(item.CurrentStage)
	if err != nil {
		return nil, err
	}
	if !st.HasRole(req.Role) {
		return nil, fmt.Errorf("role %s is not part of stage %s", req.Role, st.Name)
	}

	th, err := s.thresholdsFor(st)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().Format(time.RFC3339)
	token := "SLOT-" + uuid.NewString()
	granted, err := s.claimRepo.Insert(ctx, &secondary.ClaimRecord{
		Token:         token,
		ItemID:        item.ID,
		Stage:         item.CurrentStage,
		Role:          req.Role,
		AgentID:       req.AgentID,
		ClaimedAt:     now,
		LastHeartbeat: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim slot: %w", err)
	}
	if !granted {
		return nil, fmt.Errorf("%s/%s role %s: %w", item.ID, st.Name, req.Role, secondary.ErrClaimConflict)
	}

	s.audit.record(ctx, "claim", token, "claim",
		fmt.Sprintf("item=%s stage=%s role=%s agent=%s", item.ID, st.Name, req.Role, req.AgentID))
	s.log.Debug("slot claimed", "item", item.ID, "stage", st.Name, "role", req.Role, "agent", req.AgentID)

	return &primary.ClaimSlotResponse{
		SlotToken:        token,
		Stage:            item.CurrentStage,
		StageName:        st.Name,
		PayloadRef:       item.PayloadRef,
		HeartbeatSeconds: int(th.HeartbeatTimeout / time.Second),
	}, nil
}

// Heartbeat renews a claim's liveness window.
func (s *RegistryServiceImpl) Heartbeat(ctx context.Context, slotToken string) error {
	renewed, err := s.claimRepo.Heartbeat(ctx, slotToken, s.clock.Now().Format(time.RFC3339))
	if err != nil {
		return err
	}
	if !renewed {
		return fmt.Errorf("claim %s: %w", slotToken, secondary.ErrClaimExpired)
	}
	return nil
}

// ReleaseSlot releases a claim without submitting a finding.
func (s *RegistryServiceImpl) ReleaseSlot(ctx context.Context, slotToken string) error {
	released, err := s.claimRepo.Release(ctx, slotToken)
	if err != nil {
		return err
	}
	if !released {
		claim, err := s.claimRepo.GetByToken(ctx, slotToken)
		if err != nil {
			return err
		}
		// Releasing twice is a no-op; an expired claim is not.
		if claim.Status == secondary.ClaimStatusReleased {
			return nil
		}
		return fmt.Errorf("claim %s: %w", slotToken, secondary.ErrClaimExpired)
	}

	s.audit.record(ctx, "claim", slotToken, "release", "")
	return nil
}

// SubmitFinding records a finding and releases the claim. A finding
// arriving through an expired claim is kept, flagged as parallel: the
// work was done and the evidence still feeds consensus.
func (s *RegistryServiceImpl) SubmitFinding(ctx context.Context, req primary.SubmitFindingRequest) (*primary.SubmitFindingResponse, error) {
	switch consensus.Verdict(req.Verdict) {
	case consensus.Validated, consensus.Invalidated, consensus.Uncertain:
	default:
		return nil, fmt.Errorf("invalid verdict %q", req.Verdict)
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return nil, fmt.Errorf("confidence %f out of range [0,1]", req.Confidence)
	}

	claim, err := s.claimRepo.GetByToken(ctx, req.SlotToken)
	if err != nil {
		return nil, err
	}

	// Parallel when the claim lapsed, the item moved on while the agent
	// was working, or another agent already reported this role.
	parallel := claim.Status != secondary.ClaimStatusActive
	if item, err := s.itemRepo.GetByID(ctx, claim.ItemID); err == nil {
		if item.CurrentStage != claim.Stage || item.State != "active" {
			parallel = true
		}
	}
	if !parallel {
		prior, err := s.findingRepo.ListByStage(ctx, claim.ItemID, claim.Stage)
		if err != nil {
			return nil, err
		}
		for _, f := range prior {
			if f.Role == claim.Role {
				parallel = true
				break
			}
		}
	}

	findingID := "FIND-" + uuid.NewString()
	err = s.findingRepo.Append(ctx, &secondary.FindingRecord{
		ID:          findingID,
		ItemID:      claim.ItemID,
		Stage:       claim.Stage,
		Role:        claim.Role,
		AgentID:     claim.AgentID,
		Verdict:     req.Verdict,
		Confidence:  req.Confidence,
		Evidence:    req.Evidence,
		Parallel:    parallel,
		SubmittedAt: s.clock.Now().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store finding: %w", err)
	}

	if claim.Status == secondary.ClaimStatusActive {
		if _, err := s.claimRepo.Release(ctx, req.SlotToken); err != nil {
			s.log.Warn("failed to release claim after submit", "claim", req.SlotToken, "error", err)
		}
	}

	s.audit.record(ctx, "finding", findingID, "submit",
		fmt.Sprintf("item=%s stage=%d role=%s verdict=%s parallel=%t", claim.ItemID, claim.Stage, claim.Role, req.Verdict, parallel))
	s.log.Debug("finding submitted",
		"item", claim.ItemID, "stage", claim.Stage, "role", claim.Role, "verdict", req.Verdict, "parallel", parallel)

	return &primary.SubmitFindingResponse{FindingID: findingID, Parallel: parallel}, nil
}

// AvailableRoles lists the open roles of an item's current stage.
func (s *RegistryServiceImpl) AvailableRoles(ctx context.Context, itemID string) (*primary.AvailableRolesResponse, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.State != "active" {
		return &primary.AvailableRolesResponse{ItemID: itemID, Stage: item.CurrentStage, StageName: stage.Name(item.CurrentStage)}, nil
	}

	st, err := stage.Get(item.CurrentStage)
	if err != nil {
		return nil, err
	}

	held, err := s.claimRepo.ActiveRoles(ctx, itemID, item.CurrentStage)
	if err != nil {
		return nil, err
	}
	heldSet := make(map[string]bool, len(held))
	for _, r := range held {
		heldSet[r] = true
	}

	// A role that already reported stays closed even after its claim is
	// released, so agents do not pile duplicate findings onto it.
	reported, err := s.findingRepo.ListByStage(ctx, itemID, item.CurrentStage)
	if err != nil {
		return nil, err
	}
	for _, f := range reported {
		heldSet[f.Role] = true
	}

	resp := &primary.AvailableRolesResponse{
		ItemID:    itemID,
		Stage:     item.CurrentStage,
		StageName: st.Name,
	}
	for _, r := range st.Roles {
		if !heldSet[r] {
			resp.Roles = append(resp.Roles, r)
		}
	}
	return resp, nil
}

// ListClaims lists claims with optional filters.
func (s *RegistryServiceImpl) ListClaims(ctx context.Context, filters primary.ClaimFilters) ([]*primary.Claim, error) {
	records, err := s.claimRepo.List(ctx, secondary.ClaimFilters{
		ItemID: filters.ItemID,
		Stage:  filters.Stage,
		Status: filters.Status,
		Limit:  filters.Limit,
	})
	if err != nil {
		return nil, err
	}

	claims := make([]*primary.Claim, 0, len(records))
	for _, r := range records {
		claims = append(claims, recordToClaim(r))
	}
	return claims, nil
}

func (s *RegistryServiceImpl) thresholdsFor(st stage.Stage) (stage.Thresholds, error) {
	th, err := s.cfg.ThresholdsFor(st.Name)
	if err != nil {
		return stage.Thresholds{}, err
	}
	return st.EffectiveThresholds(th), nil
}

// Ensure RegistryServiceImpl implements the interface
var _ primary.RegistryService = (*RegistryServiceImpl)(nil)
