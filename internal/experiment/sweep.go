package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/san-kum/hipert/internal/config"
)

// Sweep runs one experiment per configuration concurrently. Each run owns
// its own system; the registry is only read. Results are returned in the
// order of cfgs, and the first failing run (by index) is reported.
func Sweep(ctx context.Context, cfgs []*config.Config, reg *Registry, log *slog.Logger) ([]*Result, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	if log == nil {
		log = slog.Default()
	}

	results := make([]*Result, len(cfgs))
	errs := make([]error, len(cfgs))

	var wg sync.WaitGroup
	for i, cfg := range cfgs {
		wg.Add(1)
		go func(idx int, cfg *config.Config) {
			defer wg.Done()

			e := New(cfg, reg, log.With("run", idx))
			if err := e.Setup(); err != nil {
				errs[idx] = err
				return
			}
			defer e.System().Close()
			results[idx], errs[idx] = e.Run(ctx)
		}(i, cfg)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return results, fmt.Errorf("run %d: %w", i, err)
		}
	}
	return results, nil
}

// Vary returns copies of base with the named parameter set to each value
// on every component whose model is in models.
func Vary(base *config.Config, param string, values []float64, models ...string) []*config.Config {
	out := make([]*config.Config, 0, len(values))
	for _, v := range values {
		cfg := base.Clone()
		for i := range cfg.Components {
			cc := &cfg.Components[i]
			if len(models) > 0 && !slices.Contains(models, cc.Model) {
				continue
			}
			if cc.Params == nil {
				cc.Params = map[string]float64{}
			}
			cc.Params[param] = v
		}
		out = append(out, cfg)
	}
	return out
}
