package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/core/stage"
	"github.com/example/gauntlet/internal/logging"
	"github.com/example/gauntlet/internal/ports/primary"
	"github.com/example/gauntlet/internal/ports/secondary"
)

// MonitorServiceImpl implements the MonitorService interface. It is the
// failover half of the heartbeat protocol: agents renew, the monitor
// expires what stopped renewing, and expired slots become claimable again.
type MonitorServiceImpl struct {
	claimRepo secondary.ClaimRepository
	clock     secondary.Clock
	cfg       *config.Config
	audit     *auditor
	log       *slog.Logger
}

// NewMonitorService creates a new MonitorService with injected dependencies.
func NewMonitorService(
	claimRepo secondary.ClaimRepository,
	clock secondary.Clock,
	cfg *config.Config,
	auditRepo secondary.AuditLogRepository,
	identity secondary.AgentIdentityProvider,
) *MonitorServiceImpl {
	return &MonitorServiceImpl{
		claimRepo: claimRepo,
		clock:     clock,
		cfg:       cfg,
		audit:     newAuditor(auditRepo, identity),
		log:       logging.New("monitor"),
	}
}

// ExpireStale expires active claims whose heartbeat lapsed. Candidates
// are gathered with the tightest configured timeout, then each is checked
// against its own stage's timeout before the conditional expiry write, so
// stage overrides are honored and a racing heartbeat wins.
func (s *MonitorServiceImpl) ExpireStale(ctx context.Context) (*primary.ExpireStaleResponse, error) {
	now := s.clock.Now()

	minTimeout, err := s.minHeartbeatTimeout()
	if err != nil {
		return nil, err
	}

	candidates, err := s.claimRepo.ListStale(ctx, now.Add(-minTimeout).Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to list stale claims: %w", err)
	}

	resp := &primary.ExpireStaleResponse{}
	for _, c := range candidates {
		st, err := stage.Get(c.Stage)
		if err != nil {
			continue
		}
		th, err := s.cfg.ThresholdsFor(st.Name)
		if err != nil {
			return nil, err
		}

		beat, err := time.Parse(time.RFC3339, c.LastHeartbeat)
		if err != nil {
			s.log.Warn("claim has unparseable heartbeat", "claim", c.Token, "value", c.LastHeartbeat)
			continue
		}
		if now.Sub(beat) <= th.HeartbeatTimeout {
			continue
		}

		expired, err := s.claimRepo.Expire(ctx, c.Token, c.LastHeartbeat)
		if err != nil {
			return nil, fmt.Errorf("failed to expire claim %s: %w", c.Token, err)
		}
		if !expired {
			// A heartbeat landed after our read; the agent is alive.
			continue
		}

		s.audit.record(ctx, "claim", c.Token, "expire",
			fmt.Sprintf("item=%s stage=%d role=%s agent=%s", c.ItemID, c.Stage, c.Role, c.AgentID))
		s.log.Info("claim expired",
			"claim", c.Token, "item", c.ItemID, "role", c.Role, "agent", c.AgentID,
			"silent_for", now.Sub(beat).Round(time.Second))
		resp.Expired = append(resp.Expired, recordToClaim(c))
	}

	return resp, nil
}

// Watch runs ExpireStale on a fixed cadence until the context is
// canceled. The cadence is a small fraction of the heartbeat timeout so
// expiry lag stays negligible next to the timeout itself.
func (s *MonitorServiceImpl) Watch(ctx context.Context) error {
	minTimeout, err := s.minHeartbeatTimeout()
	if err != nil {
		return err
	}

	interval := minTimeout / 30
	if interval < time.Second {
		interval = time.Second
	}

	s.log.Info("monitor started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.ExpireStale(ctx); err != nil {
				s.log.Error("expiry sweep failed", "error", err)
			}
		}
	}
}

// minHeartbeatTimeout returns the tightest heartbeat timeout across all
// stages, the safe cutoff for gathering expiry candidates.
func (s *MonitorServiceImpl) minHeartbeatTimeout() (time.Duration, error) {
	min := time.Duration(0)
	for _, st := range stage.All() {
		th, err := s.cfg.ThresholdsFor(st.Name)
		if err != nil {
			return 0, err
		}
		if min == 0 || th.HeartbeatTimeout < min {
			min = th.HeartbeatTimeout
		}
	}
	return min, nil
}

// Ensure MonitorServiceImpl implements the interface
var _ primary.MonitorService = (*MonitorServiceImpl)(nil)
