package tbs

import (
	"fmt"
)

// ZeroizeBytes securely clears a byte slice
func ZeroizeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// BatchInvert inverts every scalar with a single field inversion
// (Montgomery's trick).
func BatchInvert(scalars []Scalar) ([]Scalar, error) {
	n := len(scalars)
	if n == 0 {
		return nil, nil
	}

	for i, s := range scalars {
		if s.IsZero() {
			return nil, ErrNonInvertibleKey.WithDetails("scalar at position %d is zero", i)
		}
	}

	// partials[i] = s_0 * ... * s_i
	partials := make([]Scalar, n)
	partials[0] = scalars[0]
	for i := 1; i < n; i++ {
		partials[i] = partials[i-1].Mul(scalars[i])
	}

	acc, err := partials[n-1].Invert()
	if err != nil {
		return nil, fmt.Errorf("batch inversion: %w", err)
	}

	inverses := make([]Scalar, n)
	for i := n - 1; i > 0; i-- {
		inverses[i] = acc.Mul(partials[i-1])
		acc = acc.Mul(scalars[i])
	}
	inverses[0] = acc

	return inverses, nil
}
