package pipelineconfig

import (
	"fmt"
	"strings"

	"github.com/wonny/churnlab/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.PipelineID == "" {
		return ValidationError{"meta.pipeline_id", "required"}
	}

	// === Window ===
	// horizon_days / cutoff 중 정확히 하나
	if cfg.Window.HorizonDays != 0 && cfg.Window.Cutoff != "" {
		return ValidationError{"window", "horizon_days and cutoff are mutually exclusive"}
	}
	if cfg.Window.HorizonDays == 0 && cfg.Window.Cutoff == "" {
		return ValidationError{"window", "one of horizon_days or cutoff is required"}
	}
	if cfg.Window.HorizonDays < 0 {
		return ValidationError{"window.horizon_days", "must be > 0"}
	}
	if _, _, err := cfg.Window.CutoffTime(); err != nil {
		return ValidationError{"window.cutoff", fmt.Sprintf("must be %s", DateLayout)}
	}

	// === Features ===
	if len(cfg.Features.LookbacksDays) == 0 {
		return ValidationError{"features.lookbacks_days", "must not be empty"}
	}
	for i, days := range cfg.Features.LookbacksDays {
		if days <= 0 {
			return ValidationError{fmt.Sprintf("features.lookbacks_days[%d]", i), "must be > 0"}
		}
		// 컬럼명이 겹치지 않도록 오름차순 + 중복 금지
		if i > 0 && days <= cfg.Features.LookbacksDays[i-1] {
			return ValidationError{"features.lookbacks_days", "must be strictly increasing"}
		}
	}

	// === Output ===
	files := map[string]string{
		"output.features_file": cfg.Output.FeaturesFile,
		"output.metadata_file": cfg.Output.MetadataFile,
		"output.manifest_file": cfg.Output.ManifestFile,
	}
	seen := make(map[string]string)
	for _, field := range []string{"output.features_file", "output.metadata_file", "output.manifest_file"} {
		name := files[field]
		if name == "" {
			return ValidationError{field, "required"}
		}
		if strings.ContainsAny(name, `/\`) {
			return ValidationError{field, "must be a bare file name"}
		}
		if other, dup := seen[name]; dup {
			return ValidationError{field, fmt.Sprintf("duplicates %s", other)}
		}
		seen[name] = field
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 관측된 운영 값은 90일 / 120일
	if h := cfg.Window.HorizonDays; h != 0 && h != 90 && h != 120 {
		warnings = append(warnings, Warning{
			Code:    "UNUSUAL_HORIZON",
			Message: fmt.Sprintf("horizon_days=%d: churn 라벨 분포가 90/120일 기준과 달라짐", h),
		})
	}

	if h := cfg.Window.HorizonDays; h != 0 {
		for _, days := range cfg.Features.LookbacksDays {
			if days > 2*h {
				warnings = append(warnings, Warning{
					Code:    "LONG_LOOKBACK",
					Message: fmt.Sprintf("lookback %dd > 2x horizon: 최근 활동 지표가 lifetime과 거의 같아짐", days),
				})
			}
		}
	}

	if !cfg.Features.Product && cfg.Segmentation.Categorical {
		warnings = append(warnings, Warning{
			Code:    "MIXED_VARIANT",
			Message: "categorical segment without product features: 두 운영 변형 중 어느 것과도 일치하지 않음",
		})
	}

	return warnings
}

// WindowSpec converts the YAML window into the S1 contract
func (c *Config) WindowSpec() (contracts.WindowSpec, error) {
	cutoff, ok, err := c.Window.CutoffTime()
	if err != nil {
		return contracts.WindowSpec{}, ValidationError{"window.cutoff", err.Error()}
	}
	if ok {
		return contracts.WindowSpec{Cutoff: &cutoff}, nil
	}
	return contracts.WindowSpec{HorizonDays: c.Window.HorizonDays}, nil
}

// WithOverrides applies CLI flag overrides; horizon and cutoff replace each other
func (c *Config) WithOverrides(horizonDays int, cutoff string) (*Config, error) {
	out := *c
	out.Features.LookbacksDays = append([]int(nil), c.Features.LookbacksDays...)
	switch {
	case horizonDays != 0 && cutoff != "":
		return nil, ValidationError{"window", "horizon_days and cutoff overrides are mutually exclusive"}
	case horizonDays != 0:
		out.Window = Window{HorizonDays: horizonDays}
	case cutoff != "":
		out.Window = Window{Cutoff: cutoff}
	}
	if err := Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
