package tbs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolynomialEvaluate(t *testing.T) {
	// f(x) = 3 + 2x + x^2
	p := NewPolynomial([]Scalar{ScalarFromUint64(3), ScalarFromUint64(2), ScalarFromUint64(1)})
	require.Equal(t, 2, p.Degree())
	require.True(t, p.Secret().Equal(ScalarFromUint64(3)))

	for x, want := range map[uint64]uint64{0: 3, 1: 6, 2: 11, 5: 38} {
		require.True(t, p.Evaluate(ScalarFromUint64(x)).Equal(ScalarFromUint64(want)), "f(%d)", x)
	}
	require.True(t, p.EvaluateAt(3).Equal(ScalarFromUint64(18)))
}

func TestPolynomialPanicsWithoutCoefficients(t *testing.T) {
	require.Panics(t, func() { NewPolynomial(nil) })

	p := NewPolynomial([]Scalar{ScalarOne()})
	p.Zeroize()
	require.Panics(t, func() { p.Evaluate(ScalarOne()) })
}

func TestNewRandomPolynomial(t *testing.T) {
	p, err := NewRandomPolynomial(nil, 3)
	require.NoError(t, err)
	require.Equal(t, 3, p.Degree())

	_, err = NewRandomPolynomial(nil, -1)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestLagrangeCoefficientsAtZero(t *testing.T) {
	t.Run("SumToOne", func(t *testing.T) {
		// Interpolating the constant polynomial 1 gives Σλ_i = 1.
		coefficients, err := LagrangeCoefficientsAtZero([]ShareIndex{1, 3, 4, 9})
		require.NoError(t, err)
		sum := ScalarZero()
		for _, c := range coefficients {
			sum = sum.Add(c)
		}
		require.True(t, sum.Equal(ScalarOne()))
	})

	t.Run("TwoPoints", func(t *testing.T) {
		// λ_1 = 2/(2-1) = 2, λ_2 = 1/(1-2) = -1
		coefficients, err := LagrangeCoefficientsAtZero([]ShareIndex{1, 2})
		require.NoError(t, err)
		require.True(t, coefficients[0].Equal(ScalarFromUint64(2)))
		require.True(t, coefficients[1].Equal(ScalarOne().Neg()))
	})

	t.Run("SinglePoint", func(t *testing.T) {
		coefficients, err := LagrangeCoefficientsAtZero([]ShareIndex{7})
		require.NoError(t, err)
		require.True(t, coefficients[0].Equal(ScalarOne()))
	})

	t.Run("Rejects", func(t *testing.T) {
		_, err := LagrangeCoefficientsAtZero(nil)
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = LagrangeCoefficientsAtZero([]ShareIndex{1, 0, 2})
		require.ErrorIs(t, err, ErrReservedShareIndex)

		_, err = LagrangeCoefficientsAtZero([]ShareIndex{1, 2, 1})
		require.ErrorIs(t, err, ErrDuplicateShareIndex)
		require.Equal(t, ShareIndex(1), GetErrorContext(err)["index"])
	})
}

func TestLagrangeCoefficientsAtPoint(t *testing.T) {
	p := NewPolynomial([]Scalar{ScalarFromUint64(5), ScalarFromUint64(7), ScalarFromUint64(11)})
	base := []ShareIndex{1, 2, 3}

	coefficients, err := lagrangeCoefficientsAt(base, ScalarFromUint64(10))
	require.NoError(t, err)
	got := ScalarZero()
	for k, idx := range base {
		got = got.Add(p.EvaluateAt(idx).Mul(coefficients[k]))
	}
	require.True(t, got.Equal(p.EvaluateAt(10)))
}

func TestReconstructSecret(t *testing.T) {
	p, err := NewRandomPolynomial(newDetReader("shamir"), 2)
	require.NoError(t, err)

	shares := map[ShareIndex]Scalar{}
	for _, idx := range []ShareIndex{2, 5, 6} {
		shares[idx] = p.EvaluateAt(idx)
	}
	secret, err := ReconstructSecret(shares)
	require.NoError(t, err)
	require.True(t, secret.Equal(p.Secret()))

	_, err = ReconstructSecret(map[ShareIndex]Scalar{})
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = ReconstructSecret(map[ShareIndex]Scalar{0: ScalarOne()})
	require.ErrorIs(t, err, ErrReservedShareIndex)
}

func TestBatchInvert(t *testing.T) {
	in := []Scalar{ScalarFromUint64(2), ScalarFromUint64(3), ScalarFromUint64(1000003)}
	out, err := BatchInvert(in)
	require.NoError(t, err)
	for i := range in {
		require.True(t, in[i].Mul(out[i]).Equal(ScalarOne()))
	}

	empty, err := BatchInvert(nil)
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = BatchInvert([]Scalar{ScalarOne(), ScalarZero()})
	require.ErrorIs(t, err, ErrNonInvertibleKey)
}

func TestAggregateRejectsReservedIndex(t *testing.T) {
	f := newFederation(t, 2, 3)
	bmsg, _, err := Blind(MessageFromBytes([]byte("m")))
	require.NoError(t, err)

	shares := f.signWith(bmsg, 0, 1)
	shares[0] = shares[1]
	_, err = AggregateSignatureShares(shares)
	require.ErrorIs(t, err, ErrReservedShareIndex)

	_, err = AggregateSignatureShares(nil)
	require.ErrorIs(t, err, ErrInvalidParameters)
}
