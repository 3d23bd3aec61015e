package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/gauntlet/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockItemRepository implements secondary.ItemRepository in memory with
// the same compare-and-swap semantics as the SQLite adapter.
type mockItemRepository struct {
	mu      sync.Mutex
	items   map[string]*secondary.ItemRecord
	history []*secondary.StageHistoryRecord
	nextID  int
}

func newMockItemRepository() *mockItemRepository {
	return &mockItemRepository{items: make(map[string]*secondary.ItemRecord)}
}

func (m *mockItemRepository) Create(ctx context.Context, item *secondary.ItemRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	cp.CurrentStage = 0
	cp.State = "active"
	m.items[item.ID] = &cp
	return nil
}

func (m *mockItemRepository) GetByID(ctx context.Context, id string) (*secondary.ItemRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[id]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, fmt.Errorf("item %s: %w", id, secondary.ErrItemNotFound)
}

func (m *mockItemRepository) List(ctx context.Context, filters secondary.ItemFilters) ([]*secondary.ItemRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.ItemRecord
	for _, it := range m.items {
		if filters.State != "" && it.State != filters.State {
			continue
		}
		if filters.Stage >= 0 && it.CurrentStage != filters.Stage {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (m *mockItemRepository) GetNextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return fmt.Sprintf("ITEM-%03d", m.nextID), nil
}

func (m *mockItemRepository) AdvanceStage(ctx context.Context, id string, fromStage, toStage int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.State != "active" || it.CurrentStage != fromStage {
		return false, nil
	}
	it.CurrentStage = toStage
	it.Attempt = 0
	return true, nil
}

func (m *mockItemRepository) MarkTerminal(ctx context.Context, id string, fromStage int, state, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.State != "active" || it.CurrentStage != fromStage {
		return false, nil
	}
	it.State = state
	it.RejectReason = reason
	return true, nil
}

func (m *mockItemRepository) SetAttempt(ctx context.Context, id string, attempt int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("item %s: %w", id, secondary.ErrItemNotFound)
	}
	it.Attempt = attempt
	return nil
}

func (m *mockItemRepository) AppendHistory(ctx context.Context, entry *secondary.StageHistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	cp.ID = int64(len(m.history) + 1)
	m.history = append(m.history, &cp)
	return nil
}

func (m *mockItemRepository) GetHistory(ctx context.Context, itemID string) ([]*secondary.StageHistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.StageHistoryRecord
	for _, h := range m.history {
		if h.ItemID == itemID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

// mockClaimRepository implements secondary.ClaimRepository in memory with
// the store-level slot exclusion the SQLite adapter provides.
type mockClaimRepository struct {
	mu     sync.Mutex
	claims map[string]*secondary.ClaimRecord
}

func newMockClaimRepository() *mockClaimRepository {
	return &mockClaimRepository{claims: make(map[string]*secondary.ClaimRecord)}
}

func (m *mockClaimRepository) Insert(ctx context.Context, claim *secondary.ClaimRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.claims {
		if c.ItemID == claim.ItemID && c.Stage == claim.Stage && c.Role == claim.Role && c.Status == secondary.ClaimStatusActive {
			return false, nil
		}
	}
	cp := *claim
	cp.Status = secondary.ClaimStatusActive
	m.claims[claim.Token] = &cp
	return true, nil
}

func (m *mockClaimRepository) GetByToken(ctx context.Context, token string) (*secondary.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.claims[token]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("claim %s not found", token)
}

func (m *mockClaimRepository) Heartbeat(ctx context.Context, token, now string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[token]
	if !ok || c.Status != secondary.ClaimStatusActive {
		return false, nil
	}
	c.LastHeartbeat = now
	return true, nil
}

func (m *mockClaimRepository) Release(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[token]
	if !ok || c.Status != secondary.ClaimStatusActive {
		return false, nil
	}
	c.Status = secondary.ClaimStatusReleased
	return true, nil
}

func (m *mockClaimRepository) Expire(ctx context.Context, token, observedHeartbeat string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[token]
	if !ok || c.Status != secondary.ClaimStatusActive || c.LastHeartbeat != observedHeartbeat {
		return false, nil
	}
	c.Status = secondary.ClaimStatusExpired
	return true, nil
}

func (m *mockClaimRepository) ListStale(ctx context.Context, cutoff string) ([]*secondary.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cut, err := time.Parse(time.RFC3339, cutoff)
	if err != nil {
		return nil, err
	}
	var out []*secondary.ClaimRecord
	for _, c := range m.claims {
		if c.Status != secondary.ClaimStatusActive {
			continue
		}
		beat, err := time.Parse(time.RFC3339, c.LastHeartbeat)
		if err != nil {
			return nil, err
		}
		if beat.Before(cut) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (m *mockClaimRepository) ActiveRoles(ctx context.Context, itemID string, stage int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.claims {
		if c.ItemID == itemID && c.Stage == stage && c.Status == secondary.ClaimStatusActive {
			out = append(out, c.Role)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockClaimRepository) List(ctx context.Context, filters secondary.ClaimFilters) ([]*secondary.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.ClaimRecord
	for _, c := range m.claims {
		if filters.ItemID != "" && c.ItemID != filters.ItemID {
			continue
		}
		if filters.Stage >= 0 && c.Stage != filters.Stage {
			continue
		}
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// mockFindingRepository implements secondary.FindingRepository in memory.
type mockFindingRepository struct {
	mu       sync.Mutex
	findings []*secondary.FindingRecord
}

func newMockFindingRepository() *mockFindingRepository {
	return &mockFindingRepository{}
}

func (m *mockFindingRepository) Append(ctx context.Context, finding *secondary.FindingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *finding
	m.findings = append(m.findings, &cp)
	return nil
}

func (m *mockFindingRepository) ListByStage(ctx context.Context, itemID string, stage int) ([]*secondary.FindingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.FindingRecord
	for _, f := range m.findings {
		if f.ItemID == itemID && f.Stage == stage {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockFindingRepository) CountByStage(ctx context.Context, itemID string, stage int) (int, error) {
	list, _ := m.ListByStage(ctx, itemID, stage)
	return len(list), nil
}

// mockReportWriter implements secondary.ReportWriter in memory.
type mockReportWriter struct {
	mu      sync.Mutex
	reports []*secondary.StageReport
}

func newMockReportWriter() *mockReportWriter {
	return &mockReportWriter{}
}

func (m *mockReportWriter) WriteStageReport(ctx context.Context, report *secondary.StageReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *report
	m.reports = append(m.reports, &cp)
	return nil
}

// mockAuditRepository implements secondary.AuditLogRepository in memory.
type mockAuditRepository struct {
	mu      sync.Mutex
	entries []*secondary.AuditRecord
}

func newMockAuditRepository() *mockAuditRepository {
	return &mockAuditRepository{}
}

func (m *mockAuditRepository) Append(ctx context.Context, entry *secondary.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	cp.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockAuditRepository) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.AuditRecord
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if filters.EntityType != "" && e.EntityType != filters.EntityType {
			continue
		}
		if filters.EntityID != "" && e.EntityID != filters.EntityID {
			continue
		}
		if filters.ActorID != "" && e.ActorID != filters.ActorID {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if filters.Limit > 0 && len(out) == filters.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockAuditRepository) PruneOlderThan(ctx context.Context, days int) (int, error) {
	return 0, nil
}

// actions returns the recorded actions for an entity, oldest first.
func (m *mockAuditRepository) actions(entityType string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		if e.EntityType == entityType {
			out = append(out, e.Action)
		}
	}
	return out
}

// stubIdentityProvider implements secondary.AgentIdentityProvider.
type stubIdentityProvider struct {
	identity secondary.AgentIdentity
}

func operatorIdentity() *stubIdentityProvider {
	return &stubIdentityProvider{identity: secondary.AgentIdentity{
		Type: secondary.AgentTypeOperator, ID: "OPERATOR", FullID: "OPERATOR",
	}}
}

func (s *stubIdentityProvider) GetCurrentIdentity(ctx context.Context) (*secondary.AgentIdentity, error) {
	cp := s.identity
	return &cp, nil
}

// fakeClock implements secondary.Clock with a settable time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubAnalyzer implements secondary.Analyzer with scripted results.
type stubAnalyzer struct {
	mu sync.Mutex
	// perRole overrides the default result for specific roles.
	perRole map[string]*secondary.AnalysisResult
	// failRoles analyze with an error for specific roles.
	failRoles map[string]bool
	// fallback is returned for roles without an override.
	fallback secondary.AnalysisResult
	calls    int
}

func validatingAnalyzer(confidence float64) *stubAnalyzer {
	return &stubAnalyzer{
		perRole:   make(map[string]*secondary.AnalysisResult),
		failRoles: make(map[string]bool),
		fallback: secondary.AnalysisResult{
			Verdict:    "validated",
			Confidence: confidence,
			Evidence:   []string{"checks out"},
		},
	}
}

func (s *stubAnalyzer) Analyze(ctx context.Context, req secondary.AnalysisRequest) (*secondary.AnalysisResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.failRoles[req.Role] {
		return nil, &secondary.AnalysisError{Role: req.Role, ItemID: req.ItemID, Err: fmt.Errorf("model backend unavailable")}
	}
	if r, ok := s.perRole[req.Role]; ok {
		cp := *r
		return &cp, nil
	}
	cp := s.fallback
	return &cp, nil
}
