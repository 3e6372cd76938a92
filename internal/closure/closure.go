// Package closure expands symbolic placeholder dependencies into
// concrete variable indices.
//
// Expansion proceeds in rounds. Every round replaces each placeholder
// present at the start of the round with its expansion; entries that an
// expansion introduces are handled by the next round. A list whose
// placeholders still expand after MaxDepth rounds is rejected with
// [pert.ErrDepthExceeded], which covers self-referential tables.
package closure

import (
	"fmt"
	"slices"

	"github.com/san-kum/hipert/internal/pert"
)

const DefaultMaxDepth = 10

type Resolver struct {
	grav     pert.InfoTable
	stress   pert.InfoTable
	maxDepth int
}

// New returns a resolver that expands metric placeholders with grav and
// stress-energy placeholders with stress.
func New(grav, stress pert.InfoTable) *Resolver {
	return &Resolver{grav: grav, stress: stress, maxDepth: DefaultMaxDepth}
}

// WithMaxDepth sets the round cap; values below 1 restore the default.
func (r *Resolver) WithMaxDepth(depth int) *Resolver {
	if depth < 1 {
		depth = DefaultMaxDepth
	}
	r.maxDepth = depth
	return r
}

func (r *Resolver) MaxDepth() int { return r.maxDepth }

// Resolve returns the concrete, ascending, duplicate-free closure of
// deps. The input is not modified.
func (r *Resolver) Resolve(deps []int) ([]int, error) {
	cur := slices.Clone(deps)
	next := make([]int, 0, len(cur))
	seen := make(map[pert.Placeholder]bool)

	for depth := 0; ; depth++ {
		if depth >= r.maxDepth {
			return nil, fmt.Errorf("%w: no fixed point after %d rounds", pert.ErrDepthExceeded, r.maxDepth)
		}

		clear(seen)
		subs := false
		next = next[:0]
		for _, v := range cur {
			if v >= 0 {
				next = append(next, v)
				continue
			}
			subs = true
			p := pert.Placeholder(v)
			if seen[p] {
				continue
			}
			seen[p] = true

			exp, err := r.expand(p)
			if err != nil {
				return nil, err
			}
			next = append(next, exp...)
		}
		cur, next = next, cur

		if !subs {
			break
		}
	}

	slices.Sort(cur)
	return slices.Clip(slices.Compact(cur)), nil
}

func (r *Resolver) expand(p pert.Placeholder) (pert.Deps, error) {
	switch {
	case p.IsGravity():
		return r.grav[p], nil
	case p.IsStressEnergy():
		return r.stress[p], nil
	default:
		return nil, fmt.Errorf("%w: %d", pert.ErrUnknownPlaceholder, int(p))
	}
}
