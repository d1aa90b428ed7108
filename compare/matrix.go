package compare

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SimilarityMatrix returns the symmetric matrix of pairwise Similarity with
// 100 on the diagonal. Rows are computed in parallel; each pair is computed
// once and written to both of its cells.
func SimilarityMatrix(ctx context.Context, pages []string) ([][]float64, error) {
	n := len(pages)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 100
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			for j := i + 1; j < n; j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				s := Similarity(pages[i], pages[j])
				matrix[i][j] = s
				matrix[j][i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matrix, nil
}
