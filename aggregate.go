package tbs

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// BlindedSignature is the Lagrange-weighted combination of signature
// shares, equal to BlindedMessage^{f(0)} when at least threshold honest
// shares went in.
type BlindedSignature struct {
	p bls12381.G1Affine
}

// AggregateSignatureShares combines shares keyed by share index.
//
// The threshold is not checked here: with fewer than threshold shares the
// result is well defined but does not verify. Callers that sign for real must
// guarantee quorum first, e.g. through a Combiner.
func AggregateSignatureShares(shares map[ShareIndex]BlindedSignatureShare) (BlindedSignature, error) {
	indices := sortedIndices(shares)
	coefficients, err := LagrangeCoefficientsAtZero(indices)
	if err != nil {
		return BlindedSignature{}, err
	}

	points := make([]bls12381.G1Affine, len(indices))
	scalars := make([]fr.Element, len(indices))
	for k, idx := range indices {
		points[k] = shares[idx].p
		scalars[k] = coefficients[k].e
	}

	var out bls12381.G1Affine
	if _, err := out.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return BlindedSignature{}, fmt.Errorf("failed to combine signature shares: %w", err)
	}
	return BlindedSignature{p: out}, nil
}

// Signature is the unblinded signature Message^{f(0)}.
type Signature struct {
	p bls12381.G1Affine
}

// UnblindSignature removes the blinding factor from an aggregated signature.
func UnblindSignature(bk BlindingKey, bsig BlindedSignature) (Signature, error) {
	inv, err := bk.Invert()
	if err != nil {
		return Signature{}, err
	}
	return Signature{p: g1Mul(bsig.p, inv)}, nil
}

// Verify checks e(sig, g2) == e(H(msg), apk). A false result is an ordinary
// negative answer, not an error.
func Verify(msg Message, sig Signature, apk AggregatePublicKey) bool {
	return pairingEqual(sig.p, msg.p, apk.p)
}
