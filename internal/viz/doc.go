// Package viz renders assembled systems and integration results for the
// terminal.
//
//   - [RenderPattern]: the sparsity pattern as a coloured character grid
//   - [Plot]: asciigraph line charts of sampled variables
//   - [Summary]: a boxed overview of the variable table and bandwidth
//
// Colours come from a [Theme]; four are built in.
package viz
