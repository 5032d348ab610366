// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// optimalTruncation factorises m and estimates how many of its singular
// values carry real signal, both by a user fraction threshold and by
// the Gavish-Donoho optimal hard threshold
// (https://arxiv.org/abs/1305.5870), plotting the spectrum to
// plots/path.png.
func optimalTruncation(path string, m *mat.Dense, cut, frac float64) (*Summary, error) {
	rows, cols := m.Dims()
	s := &Summary{Rows: rows, Cols: cols}

	var svd mat.SVD
	ok := svd.Factorize(m, mat.SVDThin)
	if !ok {
		return s, fmt.Errorf("could not factorise %q", path)
	}
	sigma := svd.Values(nil)
	s.Sigma = sigma

	sum := make([]float64, len(sigma))
	floats.CumSum(sum, sigma)
	if sum[len(sum)-1] != 0 {
		floats.Scale(1/sum[len(sum)-1], sum)
	}
	rFrac := idxAbove(frac, sum)
	var f float64
	switch {
	case rFrac < len(sigma):
		f = sigma[rFrac]
	case len(sigma) != 0:
		f = sigma[0]
	}
	s.FractionalRank = rFrac

	trunc := sigma[:idxBelow(cut, sigma)]
	t := tau(rows, cols, trunc)
	rOpt := idxBelow(t, trunc)
	s.OptimalRank = rOpt

	return s, plotValues(path, trunc, t, f, rOpt, rFrac)
}

func idxAbove(thresh float64, s []float64) int {
	for i, v := range s {
		if v > thresh {
			return i
		}
	}
	return len(s)
}

func idxBelow(thresh float64, s []float64) int {
	for i, v := range s {
		if v < thresh {
			return i
		}
	}
	return len(s)
}

// https://arxiv.org/abs/1305.5870 Eq. 4.
func tau(rows, cols int, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	reverseFloats(values)
	m := stat.Quantile(0.5, 1, values, nil)
	reverseFloats(values)
	return omega(rows, cols) * m
}

func reverseFloats(f []float64) {
	for i, j := 0, len(f)-1; i < j; i, j = i+1, j-1 {
		f[i], f[j] = f[j], f[i]
	}
}

// https://arxiv.org/abs/1305.5870 Eq. 5.
func omega(rows, cols int) float64 {
	beta := float64(rows) / float64(cols)
	beta2 := beta * beta
	return 0.56*beta2*beta - 0.95*beta2 + 1.82*beta + 1.43
}
