// Package pca extracts the dominant waveform component of a CSI amplitude
// window via the power-iteration method, grounded on pca.c's compute_cov /
// matrix_power_method_eigen / pca.
package pca

import (
	"math"

	"github.com/wifi-csi/radar/internal/errs"
)

const (
	maxIterations  = 30
	convergenceEps = 0.0001
)

// Compute runs PCA over a subcarrier-amplitude window split across a
// (possibly wrapped) ring buffer: data0 holds the first segment (row_0
// frames), data1 the second (row_1 frames, empty when the window did not
// wrap). Each row has length cols (one amplitude per subcarrier).
//
// Mirrors pca.c's pca(): the column-major transpose puts one subcarrier per
// row and one frame per column, so the covariance (and its eigenvector) is
// taken over frames, not subcarriers - the Gram-matrix trick that keeps the
// eigenproblem sized by window length rather than subcarrier count. The
// output is divided by the total frame count (column), not by cols.
func Compute(cols int, data0 [][]float32, data1 [][]float32) ([]float32, error) {
	row0 := len(data0)
	row1 := len(data1)
	column := row0 + row1
	if cols <= 0 || column == 0 {
		return nil, errs.New(errs.InvalidArgument, "pca.Compute", "empty window or zero subcarrier length")
	}

	matrix := make([][]float64, cols)
	for i := range matrix {
		matrix[i] = make([]float64, column)
		for j := 0; j < row0; j++ {
			matrix[i][j] = float64(data0[j][i])
		}
		for j := 0; j < row1; j++ {
			matrix[i][j+row0] = float64(data1[j][i])
		}
	}

	cov := computeCov(cols, column, matrix)

	eigenvector, err := matrixPowerMethodEigen(column, cov, maxIterations, convergenceEps)
	if err != nil {
		return nil, err
	}

	output := make([]float32, cols)
	for i := 0; i < cols; i++ {
		var sum float64
		for j := 0; j < column; j++ {
			sum += matrix[i][j] * eigenvector[j]
		}
		output[i] = float32(sum / float64(column))
	}
	return output, nil
}

// computeCov builds the column x column covariance matrix of matrix (row x
// column), matching compute_cov's upper-triangle-then-mirror computation and
// its row*column normalisation (not column-1, matching the original exactly).
func computeCov(row, column int, matrix [][]float64) [][]float64 {
	zoomOut := float64(row * column)
	cov := make([][]float64, column)
	for i := range cov {
		cov[i] = make([]float64, column)
	}

	for i := 0; i < column; i++ {
		for j := 0; j <= i; j++ {
			var sum float64
			for k := 0; k < row; k++ {
				sum += matrix[k][i] * matrix[k][j]
			}
			sum /= zoomOut
			cov[i][j] = sum
			if i != j {
				cov[j][i] = sum
			}
		}
	}
	return cov
}

// matrixPowerMethodEigen finds the dominant eigenvector of a square matrix
// by repeated max-component-normalised multiplication, matching
// matrix_power_method_eigen. Returns errs.PcaDivergence if it fails to
// converge within itrsMax iterations.
func matrixPowerMethodEigen(n int, matrix [][]float64, itrsMax int, deltaMin float64) ([]float64, error) {
	eigenvector := make([]float64, n)
	for i := range eigenvector {
		eigenvector[i] = 1
	}

	eigenvalue := 1.0
	eigenvalueLast := 0.0
	tmp := make([]float64, n)

	iterate := 0
	for ; math.Abs(eigenvalue-eigenvalueLast) > deltaMin && iterate < itrsMax; iterate++ {
		eigenvalueLast = eigenvalue
		eigenvalue = 0

		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < n; j++ {
				sum += matrix[i][j] * eigenvector[j]
			}
			tmp[i] = sum
			if tmp[i] > eigenvalue {
				eigenvalue = tmp[i]
			}
		}

		for i := 0; i < n; i++ {
			eigenvector[i] = tmp[i] / eigenvalue
		}
	}

	if iterate == itrsMax {
		return nil, errs.New(errs.PcaDivergence, "pca.matrixPowerMethodEigen", "power iteration did not converge")
	}
	return eigenvector, nil
}

// Correlation returns the Pearson correlation coefficient of a and b,
// grounded on utils.c's corr().
func Correlation(a, b []float32) float32 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}

	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += float64(a[i])
		sumB += float64(b[i])
	}
	averA := sumA / float64(n)
	averB := sumB / float64(n)

	var covSum, varA, varB float64
	for i := 0; i < n; i++ {
		da := float64(a[i]) - averA
		db := float64(b[i]) - averB
		covSum += da * db
		varA += da * da
		varB += db * db
	}

	denom := math.Sqrt(varA * varB)
	if denom == 0 {
		return 0
	}
	return float32(covSum / denom)
}
