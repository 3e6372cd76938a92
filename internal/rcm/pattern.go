package rcm

// Pattern renders the sparsity of deps under o, one string per row:
// 'D' on the diagonal, 'X' for a dependency and '.' elsewhere.
func Pattern(deps [][]int, o Ordering) []string {
	n := len(o.Perm)
	rows := make([]string, n)
	row := make([]byte, n)
	for k, i := range o.Perm {
		for j := range row {
			row[j] = '.'
		}
		for _, d := range deps[i] {
			row[o.Inverse[d]] = 'X'
		}
		row[k] = 'D'
		rows[k] = string(row)
	}
	return rows
}
