package app

import (
	"time"

	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/ports/secondary"
)

// harness wires the application services over the in-memory mocks the
// way production wiring does over SQLite.
type harness struct {
	itemRepo    *mockItemRepository
	claimRepo   *mockClaimRepository
	findingRepo *mockFindingRepository
	reports     *mockReportWriter
	auditRepo   *mockAuditRepository
	analyzer    *stubAnalyzer
	cfg         *config.Config

	items    *ItemServiceImpl
	registry *RegistryServiceImpl
	executor *StageExecutor
	pipeline *PipelineServiceImpl
	monitor  *MonitorServiceImpl
}

func newHarness(clock secondary.Clock, cfg *config.Config) *harness {
	h := &harness{
		itemRepo:    newMockItemRepository(),
		claimRepo:   newMockClaimRepository(),
		findingRepo: newMockFindingRepository(),
		reports:     newMockReportWriter(),
		auditRepo:   newMockAuditRepository(),
		analyzer:    validatingAnalyzer(0.9),
		cfg:         cfg,
	}

	identity := operatorIdentity()
	h.items = NewItemService(h.itemRepo, h.claimRepo, h.findingRepo, h.auditRepo, identity)
	h.registry = NewRegistryService(h.itemRepo, h.claimRepo, h.findingRepo, clock, cfg, h.auditRepo, identity)
	h.executor = NewStageExecutor(h.registry, h.analyzer, h.findingRepo, clock, cfg)
	h.executor.Poll = 10 * time.Millisecond
	h.pipeline = NewPipelineService(h.itemRepo, h.executor, h.reports, h.auditRepo, identity)
	h.monitor = NewMonitorService(h.claimRepo, clock, cfg, h.auditRepo, identity)

	return h
}

// fastConfig returns thresholds tightened to test scale: windows of one
// second and a two second absolute timeout.
func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.Thresholds = config.ThresholdsConfig{
		PartialTimeWindowSeconds: 1,
		MinimumTimeWindowSeconds: 1,
		AbsoluteTimeoutSeconds:   2,
		HeartbeatTimeoutSeconds:  1,
	}
	return cfg
}

// seedActiveItem puts an item directly at the given stage.
func (h *harness) seedActiveItem(id string, stage int) {
	h.itemRepo.items[id] = &secondary.ItemRecord{
		ID:           id,
		Title:        "Test Item",
		PayloadRef:   "papers/test.pdf",
		State:        "active",
		CurrentStage: stage,
	}
}
