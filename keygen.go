package tbs

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// SecretKeyShare is one guardian's evaluation f(i) of the sharing polynomial.
// It never leaves the guardian.
type SecretKeyShare struct {
	Scalar
}

// PublicKeyShare is g2^{f(i)}, safe to broadcast.
type PublicKeyShare struct {
	p bls12381.G2Affine
}

// AggregatePublicKey is g2^{f(0)}, the federation's signing key for one epoch.
type AggregatePublicKey struct {
	p bls12381.G2Affine
}

// PublicKeyShare derives the public counterpart of the share.
func (sk SecretKeyShare) PublicKeyShare() PublicKeyShare {
	return PublicKeyShare{p: g2Mul(g2Generator(), sk.Scalar)}
}

// Dealer splits a fresh aggregate key into Keys shares of which any
// Threshold reconstruct it.
type Dealer struct {
	Threshold int
	Keys      int

	// Rand defaults to crypto/rand. Only tests should set it.
	Rand io.Reader

	// Audit receives a key generation event per run; nil disables it.
	Audit AuditEventHandler
}

// DealerKeygen runs a dealer with the process CSPRNG. SecretKeyShares[i-1]
// and PublicKeyShares[i-1] belong to share index i.
func DealerKeygen(threshold, keys int) (AggregatePublicKey, []PublicKeyShare, []SecretKeyShare, error) {
	d := &Dealer{Threshold: threshold, Keys: keys}
	return d.Generate()
}

func (d *Dealer) validate() error {
	if d.Threshold < 1 {
		return ErrInvalidParameters.WithDetails("threshold must be at least 1, got %d", d.Threshold)
	}
	if d.Keys < d.Threshold {
		return ErrInvalidParameters.WithDetails("share count %d is below threshold %d", d.Keys, d.Threshold)
	}
	return nil
}

// Generate samples a degree Threshold-1 polynomial and evaluates it at 1..Keys.
func (d *Dealer) Generate() (AggregatePublicKey, []PublicKeyShare, []SecretKeyShare, error) {
	start := time.Now()
	apk, pks, sks, err := d.generate()

	if d.Audit != nil {
		b := NewAuditEventBuilder(AuditEventKeyGeneration, ReasonDealerSetup).
			WithThreshold(d.Threshold, d.Keys)
		if err != nil {
			b = b.WithError(err)
		}
		d.Audit.OnKeyGeneration(b.BuildKeyGeneration(time.Since(start), len(sks)))
	}
	return apk, pks, sks, err
}

func (d *Dealer) generate() (AggregatePublicKey, []PublicKeyShare, []SecretKeyShare, error) {
	if err := d.validate(); err != nil {
		return AggregatePublicKey{}, nil, nil, err
	}
	r := d.Rand
	if r == nil {
		r = rand.Reader
	}

	poly, err := NewRandomPolynomial(r, d.Threshold-1)
	if err != nil {
		return AggregatePublicKey{}, nil, nil, fmt.Errorf("failed to sample sharing polynomial: %w", err)
	}
	defer poly.Zeroize()

	g2 := g2Generator()
	apk := AggregatePublicKey{p: g2Mul(g2, poly.Secret())}

	sks := make([]SecretKeyShare, d.Keys)
	raw := make([]fr.Element, d.Keys)
	for k := range sks {
		sks[k] = SecretKeyShare{poly.EvaluateAt(ShareIndex(k + 1))}
		raw[k] = sks[k].e
	}

	points := bls12381.BatchScalarMultiplicationG2(&g2, raw)
	for k := range raw {
		raw[k].SetZero()
	}
	pks := make([]PublicKeyShare, d.Keys)
	for k := range pks {
		pks[k] = PublicKeyShare{p: points[k]}
	}

	return apk, pks, sks, nil
}

// AggregatePublicKeyShares interpolates g2^{f(0)} from public key shares.
// Given at least threshold consistent shares this equals the dealer's
// aggregate key.
func AggregatePublicKeyShares(shares map[ShareIndex]PublicKeyShare) (AggregatePublicKey, error) {
	indices := sortedIndices(shares)
	coefficients, err := LagrangeCoefficientsAtZero(indices)
	if err != nil {
		return AggregatePublicKey{}, err
	}
	p, err := combineG2(shares, indices, coefficients)
	if err != nil {
		return AggregatePublicKey{}, err
	}
	return AggregatePublicKey{p: p}, nil
}

// combineG2 returns Σ coefficients[k]·shares[indices[k]].
func combineG2(shares map[ShareIndex]PublicKeyShare, indices []ShareIndex, coefficients []Scalar) (bls12381.G2Affine, error) {
	points := make([]bls12381.G2Affine, len(indices))
	scalars := make([]fr.Element, len(indices))
	for k, idx := range indices {
		points[k] = shares[idx].p
		scalars[k] = coefficients[k].e
	}

	var out bls12381.G2Affine
	if _, err := out.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return bls12381.G2Affine{}, fmt.Errorf("failed to combine public key shares: %w", err)
	}
	return out, nil
}
