package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/san-kum/hipert/internal/pert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Integrator != "rk45" {
		t.Errorf("expected integrator rk45, got %s", cfg.Integrator)
	}
	if cfg.Gauge != "synchronous" {
		t.Errorf("expected synchronous gauge, got %s", cfg.Gauge)
	}
	if cfg.MaxDepth != 10 {
		t.Errorf("expected max depth 10, got %d", cfg.MaxDepth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"gauge", func(c *Config) { c.Gauge = "harmonic" }, pert.ErrInvalidGauge},
		{"integrator", func(c *Config) { c.Integrator = "cvode" }, pert.ErrUnsupportedBackend},
		{"reltol", func(c *Config) { c.RelTol = 0 }, ErrInvalidConfig},
		{"abstol", func(c *Config) { c.AbsTol = -1 }, ErrInvalidConfig},
		{"samples", func(c *Config) { c.Samples = 0 }, ErrInvalidConfig},
		{"range", func(c *Config) { c.TEnd = c.Init.T0 }, ErrInvalidConfig},
		{"depth", func(c *Config) { c.MaxDepth = 0 }, ErrInvalidConfig},
		{"gravity", func(c *Config) { c.Gravity.Model = "" }, ErrInvalidConfig},
		{"strategy", func(c *Config) { c.Init.Strategy = "random" }, ErrInvalidConfig},
		{"negative id", func(c *Config) {
			c.Components = append(c.Components, ComponentConfig{ID: -1, Model: "fluid"})
		}, pert.ErrInvalidComponentID},
		{"duplicate id", func(c *Config) {
			c.Components = append(c.Components, ComponentConfig{ID: 0, Model: "fluid"})
		}, pert.ErrDuplicateComponent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("two-fluid")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip changed the config:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := []byte("integrator: bdf\nreltol: 1e-4\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Integrator != "bdf" || cfg.RelTol != 1e-4 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Gravity.Model != "metric" || cfg.Samples != DefaultSamples {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("samples: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("radiation")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Integrator != "bdf" {
		t.Errorf("expected bdf, got %s", cfg.Integrator)
	}

	cfg.Components[1].Params["lmax"] = 3
	if Presets["radiation"].Components[1].Params["lmax"] != 16 {
		t.Error("GetPreset returned a shared config")
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValid(t *testing.T) {
	names := ListPresets()
	if !reflect.DeepEqual(names, []string{"fluid", "radiation", "stiff", "two-fluid"}) {
		t.Errorf("ListPresets() = %v", names)
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}
