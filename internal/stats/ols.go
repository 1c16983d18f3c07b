package stats

import (
	"fmt"
	"math"
)

// olsResult carries fitted coefficients and their standard errors for a small
// least-squares regression.
type olsResult struct {
	coef []float64
	se   []float64
}

// olsFit solves ordinary least squares of y on the given regressor columns
// (an intercept column is NOT added implicitly) via normal equations. The
// problem sizes here are tiny (two or three regressors), so Gaussian
// elimination on X'X is plenty.
func olsFit(y []float64, cols [][]float64) (olsResult, error) {
	n := len(y)
	k := len(cols)
	if k == 0 {
		return olsResult{}, fmt.Errorf("no regressors")
	}
	if n <= k {
		return olsResult{}, fmt.Errorf("need more than %d observations, got %d", k, n)
	}
	for i, c := range cols {
		if len(c) != n {
			return olsResult{}, fmt.Errorf("regressor %d has %d rows, want %d", i, len(c), n)
		}
	}

	// Build X'X and X'y.
	xtx := make([][]float64, k)
	xty := make([]float64, k)
	for i := 0; i < k; i++ {
		xtx[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			var s float64
			for t := 0; t < n; t++ {
				s += cols[i][t] * cols[j][t]
			}
			xtx[i][j] = s
		}
		var s float64
		for t := 0; t < n; t++ {
			s += cols[i][t] * y[t]
		}
		xty[i] = s
	}

	inv, err := invert(xtx)
	if err != nil {
		return olsResult{}, err
	}

	coef := make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			coef[i] += inv[i][j] * xty[j]
		}
	}

	// Residual variance and coefficient standard errors.
	var rss float64
	for t := 0; t < n; t++ {
		fitted := 0.0
		for i := 0; i < k; i++ {
			fitted += coef[i] * cols[i][t]
		}
		r := y[t] - fitted
		rss += r * r
	}
	sigma2 := rss / float64(n-k)
	se := make([]float64, k)
	for i := 0; i < k; i++ {
		se[i] = math.Sqrt(sigma2 * inv[i][i])
	}

	return olsResult{coef: coef, se: se}, nil
}

// invert performs Gauss-Jordan elimination with partial pivoting on a small
// square matrix.
func invert(a [][]float64) ([][]float64, error) {
	k := len(a)
	aug := make([][]float64, k)
	for i := range aug {
		aug[i] = make([]float64, 2*k)
		copy(aug[i], a[i])
		aug[i][k+i] = 1
	}
	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-14 {
			return nil, fmt.Errorf("singular design matrix")
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]
		p := aug[col][col]
		for j := 0; j < 2*k; j++ {
			aug[col][j] /= p
		}
		for r := 0; r < k; r++ {
			if r == col {
				continue
			}
			f := aug[r][col]
			for j := 0; j < 2*k; j++ {
				aug[r][j] -= f * aug[col][j]
			}
		}
	}
	inv := make([][]float64, k)
	for i := range inv {
		inv[i] = aug[i][k:]
	}
	return inv, nil
}

// LinearFit regresses y on x with an intercept and returns (alpha, beta).
func LinearFit(y, x []float64) (float64, float64, error) {
	if len(y) != len(x) {
		return 0, 0, fmt.Errorf("series length mismatch: %d vs %d", len(y), len(x))
	}
	ones := make([]float64, len(x))
	for i := range ones {
		ones[i] = 1
	}
	fit, err := olsFit(y, [][]float64{ones, x})
	if err != nil {
		return 0, 0, err
	}
	return fit.coef[0], fit.coef[1], nil
}
