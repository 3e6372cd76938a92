// Package rcm reorders the variables of a sparse system with the reverse
// Cuthill-McKee algorithm and reports the resulting Jacobian bandwidth.
//
// The dependency lists are folded into an undirected gonum graph: an edge
// i-j exists when either variable depends on the other. Each connected
// component is traversed breadth first from a pseudo-peripheral root,
// visiting the neighbours of a node by non-decreasing degree with ties
// broken by index, and the visit order of the component is reversed.
package rcm

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Ordering is a permutation of the variables together with the bandwidth
// it induces.
type Ordering struct {
	// Perm[k] is the original variable placed at position k.
	Perm []int
	// Inverse[i] is the new position of original variable i.
	Inverse []int
	Upper   int
	Lower   int
}

// Reorder computes the RCM ordering of the n = len(deps) variables.
// deps[i] lists the variables that variable i depends on.
func Reorder(deps [][]int) Ordering {
	g := NewGraph(deps)
	perm := Permutation(g, len(deps))
	inv := Inverse(perm)
	upper, lower := Bandwidth(deps, perm, inv)
	return Ordering{Perm: perm, Inverse: inv, Upper: upper, Lower: lower}
}

// Identity returns the ordering that keeps every variable in place.
func Identity(deps [][]int) Ordering {
	perm := make([]int, len(deps))
	for i := range perm {
		perm[i] = i
	}
	upper, lower := Bandwidth(deps, perm, perm)
	return Ordering{Perm: perm, Inverse: slices.Clone(perm), Upper: upper, Lower: lower}
}

// NewGraph builds the symmetric adjacency of deps. Self dependencies
// carry no bandwidth and are skipped.
func NewGraph(deps [][]int) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := range deps {
		g.AddNode(simple.Node(i))
	}
	for i, row := range deps {
		for _, j := range row {
			if i == j {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
		}
	}
	return g
}

// Permutation returns the RCM permutation of the n nodes of g, which
// must be numbered 0..n-1.
func Permutation(g graph.Undirected, n int) []int {
	w := walker{g: g, deg: make([]int, n), mask: make([]bool, n)}
	for i := 0; i < n; i++ {
		w.deg[i] = g.From(int64(i)).Len()
	}

	perm := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if w.mask[i] {
			continue
		}
		root := w.pseudoPeripheral(i)
		start := len(perm)
		perm = w.cuthillMcKee(root, perm)
		slices.Reverse(perm[start:])
	}
	return perm
}

// Inverse returns q with q[perm[k]] = k.
func Inverse(perm []int) []int {
	inv := make([]int, len(perm))
	for k, i := range perm {
		inv[i] = k
	}
	return inv
}

// Bandwidth returns the largest forward (upper) and backward (lower)
// offset between a row and its dependencies under the permutation.
func Bandwidth(deps [][]int, perm, inv []int) (upper, lower int) {
	for k, i := range perm {
		for _, d := range deps[i] {
			j := inv[d]
			upper = max(upper, j-k)
			lower = max(lower, k-j)
		}
	}
	return upper, lower
}

type walker struct {
	g    graph.Undirected
	deg  []int
	mask []bool
}

// neighbours returns the unmasked neighbours of node sorted by degree,
// then index.
func (w *walker) neighbours(node int, extra []bool) []int {
	var out []int
	it := w.g.From(int64(node))
	for it.Next() {
		j := int(it.Node().ID())
		if w.mask[j] || (extra != nil && extra[j]) {
			continue
		}
		out = append(out, j)
	}
	slices.SortFunc(out, func(a, b int) int {
		if c := cmp.Compare(w.deg[a], w.deg[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return out
}

// levels returns the rooted level structure of the component of root.
func (w *walker) levels(root int) [][]int {
	seen := make([]bool, len(w.mask))
	seen[root] = true
	level := []int{root}
	var out [][]int
	for len(level) > 0 {
		out = append(out, level)
		var next []int
		for _, node := range level {
			for _, j := range w.neighbours(node, seen) {
				seen[j] = true
				next = append(next, j)
			}
		}
		level = next
	}
	return out
}

// pseudoPeripheral implements the George-Liu root search: move to a
// minimum degree node of the last level while that deepens the level
// structure.
func (w *walker) pseudoPeripheral(start int) int {
	root := start
	ls := w.levels(root)
	for {
		last := ls[len(ls)-1]
		cand := last[0]
		for _, node := range last[1:] {
			if w.deg[node] < w.deg[cand] || (w.deg[node] == w.deg[cand] && node < cand) {
				cand = node
			}
		}
		cls := w.levels(cand)
		if len(cls) <= len(ls) {
			return root
		}
		root, ls = cand, cls
	}
}

func (w *walker) cuthillMcKee(root int, perm []int) []int {
	head := len(perm)
	w.mask[root] = true
	perm = append(perm, root)
	for head < len(perm) {
		node := perm[head]
		head++
		for _, j := range w.neighbours(node, nil) {
			w.mask[j] = true
			perm = append(perm, j)
		}
	}
	return perm
}
