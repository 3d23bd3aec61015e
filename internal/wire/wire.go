// Package wire provides dependency injection for the gauntlet application.
// It creates singleton services with lazy initialization.
package wire

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/example/gauntlet/internal/adapters/analysis"
	cliadapter "github.com/example/gauntlet/internal/adapters/cli"
	"github.com/example/gauntlet/internal/adapters/persistence"
	"github.com/example/gauntlet/internal/adapters/sqlite"
	"github.com/example/gauntlet/internal/app"
	"github.com/example/gauntlet/internal/config"
	"github.com/example/gauntlet/internal/db"
	"github.com/example/gauntlet/internal/ports/primary"
	"github.com/example/gauntlet/internal/ports/secondary"
)

var (
	cfg             *config.Config
	analyzer        secondary.Analyzer
	itemService     primary.ItemService
	pipelineService primary.PipelineService
	registryService primary.RegistryService
	monitorService  primary.MonitorService
	auditService    primary.AuditService
	once            sync.Once
)

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// ItemService returns the singleton ItemService instance.
func ItemService() primary.ItemService {
	once.Do(initServices)
	return itemService
}

// PipelineService returns the singleton PipelineService instance.
func PipelineService() primary.PipelineService {
	once.Do(initServices)
	return pipelineService
}

// RegistryService returns the singleton RegistryService instance.
func RegistryService() primary.RegistryService {
	once.Do(initServices)
	return registryService
}

// MonitorService returns the singleton MonitorService instance.
func MonitorService() primary.MonitorService {
	once.Do(initServices)
	return monitorService
}

// AuditService returns the singleton AuditService instance.
func AuditService() primary.AuditService {
	once.Do(initServices)
	return auditService
}

// Analyzer returns the configured analyzer, for standalone agent workers.
func Analyzer() secondary.Analyzer {
	once.Do(initServices)
	return analyzer
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Repository adapters (secondary ports) with injected DB
	itemRepo := sqlite.NewItemRepository(database)
	claimRepo := sqlite.NewClaimRepository(database)
	findingRepo := sqlite.NewFindingRepository(database)
	consensusRepo := sqlite.NewConsensusRepository(database)
	auditRepo := sqlite.NewAuditLogRepository(database)
	agentProvider := persistence.NewAgentIdentityProvider()
	clock := persistence.NewSystemClock()

	analyzer = analysis.NewHeuristicAnalyzer(cfg.Analyzer.Bias)

	// Services (primary ports implementation)
	itemService = app.NewItemService(itemRepo, claimRepo, findingRepo, auditRepo, agentProvider)
	registryService = app.NewRegistryService(itemRepo, claimRepo, findingRepo, clock, cfg, auditRepo, agentProvider)
	executor := app.NewStageExecutor(registryService, analyzer, findingRepo, clock, cfg)
	pipelineService = app.NewPipelineService(itemRepo, executor, consensusRepo, auditRepo, agentProvider)
	monitorService = app.NewMonitorService(claimRepo, clock, cfg, auditRepo, agentProvider)
	auditService = app.NewAuditService(auditRepo)
}

// ItemAdapter returns a new ItemAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func ItemAdapter() *cliadapter.ItemAdapter {
	return ItemAdapterWithOutput(os.Stdout)
}

// ItemAdapterWithOutput returns a new ItemAdapter writing to the given output.
// This variant allows testing or alternate output destinations.
func ItemAdapterWithOutput(out io.Writer) *cliadapter.ItemAdapter {
	once.Do(initServices)
	return cliadapter.NewItemAdapter(itemService, out)
}

// PipelineAdapter returns a new PipelineAdapter writing to stdout.
func PipelineAdapter() *cliadapter.PipelineAdapter {
	return PipelineAdapterWithOutput(os.Stdout)
}

// PipelineAdapterWithOutput returns a new PipelineAdapter writing to the given output.
func PipelineAdapterWithOutput(out io.Writer) *cliadapter.PipelineAdapter {
	once.Do(initServices)
	return cliadapter.NewPipelineAdapter(pipelineService, out)
}

// OpsAdapter returns a new OpsAdapter writing to stdout.
func OpsAdapter() *cliadapter.OpsAdapter {
	return OpsAdapterWithOutput(os.Stdout)
}

// OpsAdapterWithOutput returns a new OpsAdapter writing to the given output.
func OpsAdapterWithOutput(out io.Writer) *cliadapter.OpsAdapter {
	once.Do(initServices)
	return cliadapter.NewOpsAdapter(registryService, monitorService, auditService, out)
}
