package config

import (
	"maps"
	"slices"
)

var Presets = map[string]*Config{
	"fluid": {
		Gauge: "synchronous", Integrator: "rk45", RelTol: 1e-6, AbsTol: 1e-10,
		TEnd: 20, Samples: 200, MaxDepth: DefaultMaxDepth,
		Background: BackgroundConfig{Model: "expansion", H0: 0.05},
		Gravity:    SectorConfig{Model: "metric"},
		Components: []ComponentConfig{{ID: 0, Model: "fluid"}},
		Init:       InitConfig{Strategy: "uniform", Value: 1e-3},
	},
	"two-fluid": {
		Gauge: "newtonian", Integrator: "rk45", RelTol: 1e-6, AbsTol: 1e-10,
		TEnd: 20, Samples: 200, MaxDepth: DefaultMaxDepth,
		Background: BackgroundConfig{Model: "expansion", H0: 0.05},
		Gravity:    SectorConfig{Model: "metric"},
		Components: []ComponentConfig{
			{ID: 0, Model: "fluid"},
			{ID: 1, Model: "fluid", Params: map[string]float64{"w": 1.0 / 3.0, "cs2": 1.0 / 3.0}},
		},
		Init: InitConfig{Strategy: "uniform", Value: 1e-3},
	},
	"radiation": {
		Gauge: "synchronous", Integrator: "bdf", RelTol: 1e-5, AbsTol: 1e-9,
		TEnd: 30, Samples: 300, MaxDepth: DefaultMaxDepth,
		Background: BackgroundConfig{Model: "static"},
		Gravity:    SectorConfig{Model: "metric"},
		Components: []ComponentConfig{
			{ID: 0, Model: "fluid"},
			{ID: 1, Model: "hierarchy", Params: map[string]float64{"lmax": 16}},
		},
		Init: InitConfig{Strategy: "uniform", Value: 1e-3},
	},
	"stiff": {
		Gauge: "newtonian", Integrator: "bdf", RelTol: 1e-6, AbsTol: 1e-10,
		TEnd: 10, Samples: 100, MaxDepth: DefaultMaxDepth,
		Background: BackgroundConfig{Model: "static"},
		Gravity:    SectorConfig{Model: "metric", Params: map[string]float64{"damping": 200}},
		Components: []ComponentConfig{
			{ID: 0, Model: "fluid", Params: map[string]float64{"damping": 500}},
			{ID: 1, Model: "hierarchy", Params: map[string]float64{"lmax": 32, "damping": 100}},
		},
		Init: InitConfig{Strategy: "uniform", Value: 1e-3},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	return slices.Sorted(maps.Keys(Presets))
}
