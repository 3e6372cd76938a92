package experiment

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/san-kum/hipert/internal/config"
	"github.com/san-kum/hipert/internal/models"
	"github.com/san-kum/hipert/internal/pert"
)

var (
	ErrUnknownModel = errors.New("experiment: unknown model")
	ErrUnknownParam = errors.New("experiment: unknown parameter")
)

type (
	GravityFactory    func(params map[string]float64) (pert.Gravity, error)
	ComponentFactory  func(id int, params map[string]float64) (pert.Component, error)
	BackgroundFactory func(cfg config.BackgroundConfig) (pert.Background, error)
)

// Registry maps model names to factories.
type Registry struct {
	gravity     map[string]GravityFactory
	components  map[string]ComponentFactory
	backgrounds map[string]BackgroundFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		gravity:     make(map[string]GravityFactory),
		components:  make(map[string]ComponentFactory),
		backgrounds: make(map[string]BackgroundFactory),
	}

	r.gravity["metric"] = func(params map[string]float64) (pert.Gravity, error) {
		m := models.NewMetric()
		err := applyParams("metric", params, map[string]*float64{
			"kappa":   &m.Kappa,
			"damping": &m.Damping,
		})
		return m, err
	}

	r.components["fluid"] = func(id int, params map[string]float64) (pert.Component, error) {
		f := models.NewFluid(id)
		err := applyParams("fluid", params, map[string]*float64{
			"w":       &f.W,
			"cs2":     &f.Cs2,
			"k":       &f.K,
			"rho":     &f.Rho,
			"damping": &f.Damping,
		})
		return f, err
	}
	r.components["hierarchy"] = func(id int, params map[string]float64) (pert.Component, error) {
		lmax := 8.0
		h := models.NewHierarchy(id, 0)
		err := applyParams("hierarchy", params, map[string]*float64{
			"lmax":    &lmax,
			"k":       &h.K,
			"rho":     &h.Rho,
			"damping": &h.Damping,
		})
		h.LMax = max(int(lmax), 2)
		return h, err
	}

	r.backgrounds["static"] = func(config.BackgroundConfig) (pert.Background, error) {
		return models.Static{}, nil
	}
	r.backgrounds["expansion"] = func(cfg config.BackgroundConfig) (pert.Background, error) {
		return models.NewExpansion(cfg.H0), nil
	}

	return r
}

func applyParams(model string, params map[string]float64, fields map[string]*float64) error {
	for name, v := range params {
		p, ok := fields[name]
		if !ok {
			return fmt.Errorf("%w: %s has no %q", ErrUnknownParam, model, name)
		}
		*p = v
	}
	return nil
}

func (r *Registry) RegisterGravity(name string, f GravityFactory)       { r.gravity[name] = f }
func (r *Registry) RegisterComponent(name string, f ComponentFactory)   { r.components[name] = f }
func (r *Registry) RegisterBackground(name string, f BackgroundFactory) { r.backgrounds[name] = f }

func (r *Registry) GetGravity(name string, params map[string]float64) (pert.Gravity, error) {
	fn, ok := r.gravity[name]
	if !ok {
		return nil, fmt.Errorf("%w: gravity %q", ErrUnknownModel, name)
	}
	return fn(params)
}

func (r *Registry) GetComponent(name string, id int, params map[string]float64) (pert.Component, error) {
	fn, ok := r.components[name]
	if !ok {
		return nil, fmt.Errorf("%w: component %q", ErrUnknownModel, name)
	}
	return fn(id, params)
}

func (r *Registry) GetBackground(cfg config.BackgroundConfig) (pert.Background, error) {
	name := cfg.Model
	if name == "" {
		name = "static"
	}
	fn, ok := r.backgrounds[name]
	if !ok {
		return nil, fmt.Errorf("%w: background %q", ErrUnknownModel, name)
	}
	return fn(cfg)
}

func (r *Registry) ListGravity() []string    { return slices.Sorted(maps.Keys(r.gravity)) }
func (r *Registry) ListComponents() []string { return slices.Sorted(maps.Keys(r.components)) }
func (r *Registry) ListBackgrounds() []string {
	return slices.Sorted(maps.Keys(r.backgrounds))
}
