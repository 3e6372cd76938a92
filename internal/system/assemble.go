package system

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/san-kum/hipert/internal/closure"
	"github.com/san-kum/hipert/internal/integrators"
	"github.com/san-kum/hipert/internal/pert"
	"github.com/san-kum/hipert/internal/rcm"
)

type orderings struct {
	original  rcm.Ordering
	reordered rcm.Ordering
}

// rebuild regenerates the variable table. On error the system is left
// unassembled until a later rebuild succeeds.
func (s *System) rebuild() error {
	s.assembled = false
	s.vars = nil
	s.deps = nil
	s.order = orderings{}
	s.band = integrators.Band{}
	s.gravPos = nil
	s.compPos = nil
	s.ctl.prepared = false

	if s.grav == nil {
		s.log.Debug("system_unassembled", "reason", "no gravity")
		return nil
	}

	vars, grav, stress, pad := s.collect()

	r := closure.New(grav, stress).WithMaxDepth(s.maxDepth)
	deps := make([][]int, len(vars))
	for i := range vars {
		d, err := r.Resolve(vars[i].Deps)
		if err != nil {
			return fmt.Errorf("resolve variable %d of %s: %w", vars[i].Local, ownerName(vars[i].Owner), err)
		}
		if len(d) > 0 && d[len(d)-1] >= pad {
			return fmt.Errorf("%w: variable %d of %s depends on %d, table has %d",
				pert.ErrIndexOutOfRange, vars[i].Local, ownerName(vars[i].Owner), d[len(d)-1], pad)
		}
		deps[i] = d
	}

	o := orderings{original: rcm.Identity(deps), reordered: rcm.Reorder(deps)}
	inv := o.reordered.Inverse
	for i := range vars {
		vars[i].Index = inv[i]
		remapped := make([]int, len(deps[i]))
		for k, d := range deps[i] {
			remapped[k] = inv[d]
		}
		slices.Sort(remapped)
		vars[i].Deps = remapped
	}

	s.vars = vars
	s.deps = deps
	s.order = o
	s.layout()

	band := integrators.Band{Upper: o.reordered.Upper, Lower: o.reordered.Lower}
	s.band = band
	s.assembled = true

	if s.log.Enabled(context.Background(), slog.LevelDebug) {
		s.logPattern("sparsity_original", o.original)
		s.logPattern("sparsity_reordered", o.reordered)
	}
	s.log.Info("system_assembled",
		"vars", len(vars),
		"components", len(s.active),
		"gauge", s.gauge.String(),
		"upper", band.Upper,
		"lower", band.Lower,
		"upper_original", o.original.Upper,
		"lower_original", o.original.Lower,
	)
	return nil
}

// collect appends the gravity variables and then every active component's
// variables, shifting local indices by the running pad. It returns the
// table, the gravity info table, the aggregated stress-energy table and
// the final pad.
func (s *System) collect() ([]pert.Variable, pert.InfoTable, pert.InfoTable, int) {
	var vars []pert.Variable
	pad := 0
	vars, pad = appendSector(vars, s.grav, pert.GravityOwner, pad)
	grav := s.grav.Info().Clone()

	stress := make(pert.InfoTable)
	for _, id := range s.active {
		c := s.slots[id]
		t := c.TInfo().Clone()
		t.AddPad(pad)
		stress.Append(t)
		vars, pad = appendSector(vars, c, id, pad)
	}
	return vars, grav, stress, pad
}

func appendSector(vars []pert.Variable, sec pert.Sector, owner, pad int) ([]pert.Variable, int) {
	n := sec.NDynVar()
	for i := 0; i < n; i++ {
		d := sec.Deps(i).Clone()
		d.AddPad(pad)
		vars = append(vars, pert.Variable{Owner: owner, Local: i, Slot: pad + i, Deps: d})
	}
	return vars, pad + n
}

// layout records, per owner, the state positions of its variables.
func (s *System) layout() {
	s.compPos = make([][]int, len(s.active))
	for _, v := range s.vars {
		if v.Owner == pert.GravityOwner {
			s.gravPos = append(s.gravPos, v.Index)
			continue
		}
		i, _ := slices.BinarySearch(s.active, v.Owner)
		s.compPos[i] = append(s.compPos[i], v.Index)
	}
}

func (s *System) logPattern(msg string, o rcm.Ordering) {
	s.log.Debug(msg, "upper", o.Upper, "lower", o.Lower)
	for k, row := range rcm.Pattern(s.deps, o) {
		s.log.Debug(msg, "row", k, "pattern", row)
	}
}

// SparsityPattern renders the dependency pattern before and after
// reordering.
func (s *System) SparsityPattern() (original, reordered []string, err error) {
	if !s.assembled {
		return nil, nil, pert.ErrNotAssembled
	}
	return rcm.Pattern(s.deps, s.order.original), rcm.Pattern(s.deps, s.order.reordered), nil
}

func ownerName(owner int) string {
	if owner == pert.GravityOwner {
		return "gravity"
	}
	return fmt.Sprintf("component %d", owner)
}
