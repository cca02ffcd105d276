package tbs

import (
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
)

// BlindedSignatureShare is one guardian's partial signature,
// BlindedMessage^{sk_i}.
type BlindedSignatureShare struct {
	p bls12381.G1Affine
}

// SignMessage produces a guardian's partial signature. It needs no knowledge
// of the threshold or of other guardians.
func SignMessage(bmsg BlindedMessage, sk SecretKeyShare) BlindedSignatureShare {
	return BlindedSignatureShare{p: g1Mul(bmsg.p, sk.Scalar)}
}

// VerifyBlindShare checks e(share, g2) == e(bmsg, pk_i), so a share from a
// misbehaving guardian can be dropped before aggregation.
func VerifyBlindShare(bmsg BlindedMessage, share BlindedSignatureShare, pk PublicKeyShare) bool {
	return pairingEqual(share.p, bmsg.p, pk.p)
}

// pairingEqual reports whether e(sig, g2) == e(msg, key). The identity in
// any position would satisfy the equation for unrelated inputs, so it never
// verifies.
func pairingEqual(sig, msg bls12381.G1Affine, key bls12381.G2Affine) bool {
	if sig.IsInfinity() || msg.IsInfinity() || key.IsInfinity() {
		return false
	}
	var negMsg bls12381.G1Affine
	negMsg.Neg(&msg)
	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{sig, negMsg},
		[]bls12381.G2Affine{g2Generator(), key},
	)
	return err == nil && ok
}
