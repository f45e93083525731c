package pipelineconfig

import "time"

// Config는 churn 피처 파이프라인 한 번 실행의 전체 설정
type Config struct {
	Meta         Meta         `yaml:"meta" json:"meta"`
	Window       Window       `yaml:"window" json:"window"`
	Features     Features     `yaml:"features" json:"features"`
	Segmentation Segmentation `yaml:"segmentation" json:"segmentation"`
	Output       Output       `yaml:"output" json:"output"`
}

// Meta 메타 정보
type Meta struct {
	PipelineID string `yaml:"pipeline_id" json:"pipeline_id"`
	Version    string `yaml:"version" json:"version"`
}

// Window S1: 학습/관측 구간 경계.
// horizon_days (max(InvoiceDate) - N일) 또는 cutoff (YYYY-MM-DD) 중 하나만 지정
type Window struct {
	HorizonDays int    `yaml:"horizon_days,omitempty" json:"horizon_days,omitempty"`
	Cutoff      string `yaml:"cutoff,omitempty" json:"cutoff,omitempty"`
}

// CutoffTime parses Cutoff; ok is false when no fixed cutoff is configured
func (w Window) CutoffTime() (t time.Time, ok bool, err error) {
	if w.Cutoff == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(DateLayout, w.Cutoff)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// Features S2: 집계기 설정
type Features struct {
	LookbacksDays []int `yaml:"lookbacks_days" json:"lookbacks_days"` // Purchases_Last{N}D
	Product       bool  `yaml:"product" json:"product"`               // product affinity 집계 on/off
}

// Segmentation S3: RFM 세분화
type Segmentation struct {
	Categorical bool `yaml:"categorical" json:"categorical"` // CustomerSegment 라벨 컬럼 출력
}

// Output S4: 산출물 파일명 (OutputDir 기준)
type Output struct {
	FeaturesFile string `yaml:"features_file" json:"features_file"`
	MetadataFile string `yaml:"metadata_file" json:"metadata_file"`
	ManifestFile string `yaml:"manifest_file" json:"manifest_file"`
}

// DateLayout is the accepted format of window.cutoff
const DateLayout = "2006-01-02"

// Default returns the 90-day variant used when no YAML file is given
func Default() *Config {
	return &Config{
		Meta: Meta{
			PipelineID: "churn_90d",
			Version:    "1.0.0",
		},
		Window: Window{
			HorizonDays: 90,
		},
		Features: Features{
			LookbacksDays: []int{30, 60, 90},
			Product:       true,
		},
		Segmentation: Segmentation{
			Categorical: true,
		},
		Output: Output{
			FeaturesFile: "customer_features.csv",
			MetadataFile: "feature_info.json",
			ManifestFile: "run_manifest.json",
		},
	}
}
