package tbs

import (
	"fmt"
	"sort"
)

// ShareIndex is a guardian's evaluation point on the sharing polynomial.
// Valid indices start at 1; 0 is the secret itself.
type ShareIndex uint64

func (i ShareIndex) scalar() Scalar {
	return ScalarFromUint64(uint64(i))
}

// validateIndices rejects reserved and repeated indices.
func validateIndices(indices []ShareIndex) error {
	if len(indices) == 0 {
		return ErrInvalidParameters.WithDetails("no share indices given")
	}
	seen := make(map[ShareIndex]struct{}, len(indices))
	for _, idx := range indices {
		if idx == 0 {
			return ErrReservedShareIndex.WithContext("index", idx)
		}
		if _, dup := seen[idx]; dup {
			return ErrDuplicateShareIndex.WithContext("index", idx)
		}
		seen[idx] = struct{}{}
	}
	return nil
}

// sortedIndices returns the keys of m in ascending order.
func sortedIndices[T any](m map[ShareIndex]T) []ShareIndex {
	out := make([]ShareIndex, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// LagrangeCoefficientsAtZero computes λ_i = Π_{j≠i} j/(j−i) for every index,
// returned in the same order. Only the given indices take part.
func LagrangeCoefficientsAtZero(indices []ShareIndex) ([]Scalar, error) {
	return lagrangeCoefficientsAt(indices, ScalarZero())
}

// lagrangeCoefficientsAt computes the basis polynomials over indices
// evaluated at x. x must not be one of the indices.
func lagrangeCoefficientsAt(indices []ShareIndex, x Scalar) ([]Scalar, error) {
	if err := validateIndices(indices); err != nil {
		return nil, err
	}

	xs := make([]Scalar, len(indices))
	for k, idx := range indices {
		xs[k] = idx.scalar()
	}

	numerators := make([]Scalar, len(indices))
	denominators := make([]Scalar, len(indices))
	for k := range xs {
		num := ScalarOne()
		den := ScalarOne()
		for m := range xs {
			if m == k {
				continue
			}
			num = num.Mul(xs[m].Sub(x))
			den = den.Mul(xs[m].Sub(xs[k]))
		}
		numerators[k] = num
		denominators[k] = den
	}

	// Distinct nonzero indices keep every denominator nonzero.
	inverses, err := BatchInvert(denominators)
	if err != nil {
		return nil, fmt.Errorf("failed to invert lagrange denominators: %w", err)
	}

	coefficients := make([]Scalar, len(indices))
	for k := range coefficients {
		coefficients[k] = numerators[k].Mul(inverses[k])
	}
	return coefficients, nil
}

// ReconstructSecret interpolates f(0) from scalar shares. With fewer than
// threshold shares the result is some other field element, not the secret.
func ReconstructSecret(shares map[ShareIndex]Scalar) (Scalar, error) {
	indices := sortedIndices(shares)
	coefficients, err := LagrangeCoefficientsAtZero(indices)
	if err != nil {
		return Scalar{}, err
	}

	secret := ScalarZero()
	for k, idx := range indices {
		secret = secret.Add(shares[idx].Mul(coefficients[k]))
	}
	return secret, nil
}
