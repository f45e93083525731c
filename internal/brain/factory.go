package brain

import (
	"github.com/wonny/churnlab/internal/contracts"
	"github.com/wonny/churnlab/internal/pipelineconfig"
	"github.com/wonny/churnlab/internal/s0_data/quality"
	"github.com/wonny/churnlab/internal/s1_window"
	"github.com/wonny/churnlab/internal/s2_features"
	"github.com/wonny/churnlab/internal/s3_segment"
	"github.com/wonny/churnlab/internal/s4_table"
	"github.com/wonny/churnlab/pkg/logger"
)

// DefaultStages wires the standard stage implementations for a pipeline config
func DefaultStages(cfg *pipelineconfig.Config, source contracts.TransactionSource, log *logger.Logger) Stages {
	return Stages{
		Source:   source,
		Quality:  quality.NewQualityGate(quality.DefaultConfig()),
		Splitter: s1_window.NewTemporalSplitter(log),
		Labeler:  s1_window.NewLabeler(log),
		Features: s2_features.NewBuilder(s2_features.Config{
			Lookbacks: cfg.Features.LookbacksDays,
			Product:   cfg.Features.Product,
		}, log),
		Segmenter: s3_segment.NewScorer(cfg.Segmentation.Categorical, log),
		Assembler: s4_table.NewAssembler(log),
	}
}

// FileNames maps the config output section to exporter names
func FileNames(cfg *pipelineconfig.Config) s4_table.FileNames {
	return s4_table.FileNames{
		Features: cfg.Output.FeaturesFile,
		Metadata: cfg.Output.MetadataFile,
		Manifest: cfg.Output.ManifestFile,
	}
}

// RunConfigFor builds a RunConfig (window, hash, warnings) from a pipeline config
func RunConfigFor(cfg *pipelineconfig.Config, inputPath string) (RunConfig, error) {
	spec, err := cfg.WindowSpec()
	if err != nil {
		return RunConfig{}, err
	}
	hash, err := pipelineconfig.Hash(cfg)
	if err != nil {
		return RunConfig{}, err
	}

	var warnings []string
	for _, w := range pipelineconfig.Warn(cfg) {
		warnings = append(warnings, w.String())
	}

	return RunConfig{
		Window:     spec,
		ConfigHash: hash,
		InputPath:  inputPath,
		Warnings:   warnings,
	}, nil
}
