package pipelineconfig

import (
	"errors"
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	path := "../../config/pipeline/churn_90d.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Meta.PipelineID != "churn_90d" {
		t.Errorf("expected pipeline_id=churn_90d, got %s", cfg.Meta.PipelineID)
	}
	if cfg.Window.HorizonDays != 90 {
		t.Errorf("expected horizon_days=90, got %d", cfg.Window.HorizonDays)
	}

	hash, err := Hash(cfg)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(cfg)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}

	// YAML 파일 = Default()
	defHash, _ := Hash(Default())
	if hash != defHash {
		t.Error("churn_90d.yaml drifted from Default()")
	}

	t.Logf("config hash: %s", hash)
	t.Logf("yaml size: %d bytes", len(yamlData))
}

func TestLoad120(t *testing.T) {
	path := "../../config/pipeline/churn_120d.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Features.Product || cfg.Segmentation.Categorical {
		t.Error("120d variant should disable product and categorical segment")
	}
	if len(Warn(cfg)) != 0 {
		t.Errorf("expected no warnings, got %v", Warn(cfg))
	}
}

func TestParseUnknownField(t *testing.T) {
	data := []byte(`
meta:
  pipeline_id: x
window:
  horizon_dayz: 90
`)
	if _, err := Parse(data); err == nil {
		t.Error("expected unknown field error")
	}
}

func TestValidateWindow(t *testing.T) {
	tests := []struct {
		name    string
		window  Window
		wantErr string
	}{
		{"horizon", Window{HorizonDays: 90}, ""},
		{"cutoff", Window{Cutoff: "2011-09-10"}, ""},
		{"both", Window{HorizonDays: 90, Cutoff: "2011-09-10"}, "window"},
		{"neither", Window{}, "window"},
		{"negative", Window{HorizonDays: -1}, "window.horizon_days"},
		{"bad date", Window{Cutoff: "10/09/2011"}, "window.cutoff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Window = tt.window
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantErr {
				t.Errorf("expected field %s, got %s", tt.wantErr, ve.Field)
			}
		})
	}
}

func TestValidateLookbacks(t *testing.T) {
	tests := []struct {
		name      string
		lookbacks []int
		wantErr   bool
	}{
		{"default", []int{30, 60, 90}, false},
		{"single", []int{7}, false},
		{"empty", nil, true},
		{"zero", []int{0, 30}, true},
		{"duplicate", []int{30, 30}, true},
		{"descending", []int{90, 30}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Features.LookbacksDays = tt.lookbacks
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutput(t *testing.T) {
	cfg := Default()
	cfg.Output.FeaturesFile = "out/features.csv"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for path separator")
	}

	cfg = Default()
	cfg.Output.MetadataFile = cfg.Output.FeaturesFile
	if err := Validate(cfg); err == nil {
		t.Error("expected error for duplicate output name")
	}

	cfg = Default()
	cfg.Output.ManifestFile = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected error for empty manifest name")
	}
}

func TestWarn(t *testing.T) {
	cfg := Default()
	if w := Warn(cfg); len(w) != 0 {
		t.Errorf("default should not warn, got %v", w)
	}

	cfg.Window.HorizonDays = 14
	warnings := Warn(cfg)
	codes := map[string]bool{}
	for _, w := range warnings {
		codes[w.Code] = true
	}
	if !codes["UNUSUAL_HORIZON"] {
		t.Error("expected UNUSUAL_HORIZON")
	}
	if !codes["LONG_LOOKBACK"] {
		t.Error("expected LONG_LOOKBACK (90 > 2*14)")
	}
}

func TestWindowSpec(t *testing.T) {
	cfg := Default()
	spec, err := cfg.WindowSpec()
	if err != nil {
		t.Fatal(err)
	}
	if spec.HorizonDays != 90 || spec.Cutoff != nil {
		t.Errorf("unexpected spec %+v", spec)
	}

	cfg.Window = Window{Cutoff: "2011-09-10"}
	spec, err = cfg.WindowSpec()
	if err != nil {
		t.Fatal(err)
	}
	if spec.Cutoff == nil || spec.Cutoff.Format(DateLayout) != "2011-09-10" {
		t.Errorf("unexpected cutoff %v", spec.Cutoff)
	}
	if err := spec.Validate(); err != nil {
		t.Error(err)
	}
}

func TestWithOverrides(t *testing.T) {
	base := Default()

	out, err := base.WithOverrides(120, "")
	if err != nil {
		t.Fatal(err)
	}
	if out.Window.HorizonDays != 120 {
		t.Errorf("expected 120, got %d", out.Window.HorizonDays)
	}
	if base.Window.HorizonDays != 90 {
		t.Error("override mutated base config")
	}

	out, err = base.WithOverrides(0, "2011-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if out.Window.HorizonDays != 0 || out.Window.Cutoff != "2011-06-01" {
		t.Errorf("cutoff override not applied: %+v", out.Window)
	}

	if _, err := base.WithOverrides(90, "2011-06-01"); err == nil {
		t.Error("expected error for both overrides")
	}

	h1, _ := Hash(base)
	h2, _ := Hash(out)
	if h1 == h2 {
		t.Error("different windows must hash differently")
	}
}
