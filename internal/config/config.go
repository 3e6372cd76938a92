package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/hipert/internal/integrators"
	"github.com/san-kum/hipert/internal/pert"
)

const (
	DefaultGauge      = "synchronous"
	DefaultIntegrator = "rk45"
	DefaultRelTol     = 1e-6
	DefaultAbsTol     = 1e-10
	DefaultTEnd       = 10.0
	DefaultSamples    = 100
	DefaultMaxDepth   = 10
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Gauge      string            `yaml:"gauge"`
	Integrator string            `yaml:"integrator"`
	RelTol     float64           `yaml:"reltol"`
	AbsTol     float64           `yaml:"abstol"`
	TEnd       float64           `yaml:"t_end"`
	Samples    int               `yaml:"samples"`
	MaxDepth   int               `yaml:"max_depth"`
	Background BackgroundConfig  `yaml:"background"`
	Gravity    SectorConfig      `yaml:"gravity"`
	Components []ComponentConfig `yaml:"components"`
	Init       InitConfig        `yaml:"init"`
}

type BackgroundConfig struct {
	Model string  `yaml:"model"`
	H0    float64 `yaml:"h0"`
}

type SectorConfig struct {
	Model  string             `yaml:"model"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

type ComponentConfig struct {
	ID     int                `yaml:"id"`
	Model  string             `yaml:"model"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

type InitConfig struct {
	Strategy string  `yaml:"strategy"` // zero or uniform
	Value    float64 `yaml:"value"`
	T0       float64 `yaml:"t0"`
}

func DefaultConfig() *Config {
	return &Config{
		Gauge:      DefaultGauge,
		Integrator: DefaultIntegrator,
		RelTol:     DefaultRelTol,
		AbsTol:     DefaultAbsTol,
		TEnd:       DefaultTEnd,
		Samples:    DefaultSamples,
		MaxDepth:   DefaultMaxDepth,
		Background: BackgroundConfig{Model: "static"},
		Gravity:    SectorConfig{Model: "metric"},
		Components: []ComponentConfig{
			{ID: 0, Model: "fluid"},
		},
		Init: InitConfig{Strategy: "uniform", Value: 1e-3},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields that do not depend on the model registry.
func (c *Config) Validate() error {
	var errs []error
	if _, err := pert.ParseGauge(c.Gauge); err != nil {
		errs = append(errs, err)
	}
	if _, err := integrators.ParseKind(c.Integrator); err != nil {
		errs = append(errs, err)
	}
	if !(c.RelTol > 0 && c.RelTol <= 1) {
		errs = append(errs, fmt.Errorf("%w: reltol %g not in (0, 1]", ErrInvalidConfig, c.RelTol))
	}
	if !(c.AbsTol >= 0) {
		errs = append(errs, fmt.Errorf("%w: abstol %g is negative", ErrInvalidConfig, c.AbsTol))
	}
	if c.TEnd == c.Init.T0 {
		errs = append(errs, fmt.Errorf("%w: t_end equals t0", ErrInvalidConfig))
	}
	if c.Samples < 1 {
		errs = append(errs, fmt.Errorf("%w: samples must be positive", ErrInvalidConfig))
	}
	if c.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("%w: max_depth must be positive", ErrInvalidConfig))
	}
	if c.Gravity.Model == "" {
		errs = append(errs, fmt.Errorf("%w: gravity model not set", ErrInvalidConfig))
	}
	ids := make([]int, 0, len(c.Components))
	for _, comp := range c.Components {
		if comp.ID < 0 {
			errs = append(errs, fmt.Errorf("%w: component id %d", pert.ErrInvalidComponentID, comp.ID))
		}
		if slices.Contains(ids, comp.ID) {
			errs = append(errs, fmt.Errorf("%w: %d", pert.ErrDuplicateComponent, comp.ID))
		}
		ids = append(ids, comp.ID)
	}
	switch c.Init.Strategy {
	case "", "zero", "uniform":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown init strategy %q", ErrInvalidConfig, c.Init.Strategy))
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Gravity.Params = cloneParams(c.Gravity.Params)
	out.Components = make([]ComponentConfig, len(c.Components))
	for i, comp := range c.Components {
		comp.Params = cloneParams(comp.Params)
		out.Components[i] = comp
	}
	return &out
}

func cloneParams(p map[string]float64) map[string]float64 {
	if p == nil {
		return nil
	}
	out := make(map[string]float64, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
