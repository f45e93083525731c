package commands

import (
	"context"
	"fmt"

	"github.com/wonny/churnlab/internal/brain"
	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/internal/pipelineconfig"
	"github.com/wonny/churnlab/internal/s0_data"
	"github.com/wonny/churnlab/internal/s4_table"
	"github.com/wonny/churnlab/pkg/config"
	"github.com/wonny/churnlab/pkg/database"
	"github.com/wonny/churnlab/pkg/logger"
)

// Source / sink kinds accepted by --source and --sink
const (
	kindCSV      = "csv"
	kindPostgres = "postgres"
	kindBoth     = "both"
)

// pipeline is a wired orchestrator plus the resources it holds
type pipeline struct {
	orchestrator *brain.Orchestrator
	exporter     *s4_table.Exporter // nil when csv sink is off
	db           *database.DB       // nil when postgres is not used
}

// Close releases the database pool if one was opened
func (p *pipeline) Close() {
	if p.db != nil {
		p.db.Close()
	}
}

// newPipeline wires stages, source and sinks.
// ⭐ SSOT: CLI/API/스케줄러가 같은 조립 경로를 사용
func newPipeline(ctx context.Context, cfg *config.Config, pcfg *pipelineconfig.Config, source, sink string, log *logger.Logger) (*pipeline, error) {
	if err := checkKind("source", source, kindCSV, kindPostgres); err != nil {
		return nil, err
	}
	if err := checkKind("sink", sink, kindCSV, kindPostgres, kindBoth); err != nil {
		return nil, err
	}

	p := &pipeline{}
	if source == kindPostgres || sink == kindPostgres || sink == kindBoth {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		p.db = db
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	var src contracts.TransactionSource
	if source == kindPostgres {
		src = s0_data.NewTransactionRepository(p.db.Pool, log)
	} else {
		src = s0_data.NewCSVLoader(cfg.Pipeline.InputPath, log)
	}

	stages := brain.DefaultStages(pcfg, src, log)
	if sink == kindCSV || sink == kindBoth {
		p.exporter = s4_table.NewExporter(cfg.Pipeline.OutputDir, brain.FileNames(pcfg), log)
		stages.Sinks = append(stages.Sinks, p.exporter)
		stages.Manifest = p.exporter
	}
	if sink == kindPostgres || sink == kindBoth {
		stages.Sinks = append(stages.Sinks, s4_table.NewFeatureRepository(p.db.Pool, log))
	}

	p.orchestrator = brain.NewOrchestrator(stages, log)
	return p, nil
}

func checkKind(flag, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid --%s %q (valid: %v)", flag, value, allowed)
}
