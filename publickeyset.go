package tbs

import (
	"encoding/json"
	"fmt"
)

// PublicKeySet is everything a client needs to verify notes and individual
// guardian shares for one epoch. It is published by the federation and
// persisted alongside the guardians' configs.
type PublicKeySet struct {
	Threshold          int                           `json:"threshold"`
	AggregatePublicKey AggregatePublicKey            `json:"aggregate_public_key"`
	Shares             map[ShareIndex]PublicKeyShare `json:"public_key_shares"`
}

// NewPublicKeySet wraps dealer output, assigning PublicKeyShares[i-1] to
// share index i.
func NewPublicKeySet(threshold int, apk AggregatePublicKey, pks []PublicKeyShare) *PublicKeySet {
	shares := make(map[ShareIndex]PublicKeyShare, len(pks))
	for k, pk := range pks {
		shares[ShareIndex(k+1)] = pk
	}
	return &PublicKeySet{
		Threshold:          threshold,
		AggregatePublicKey: apk,
		Shares:             shares,
	}
}

// Keys returns the number of guardians.
func (s *PublicKeySet) Keys() int {
	return len(s.Shares)
}

// Share returns the public key share for idx.
func (s *PublicKeySet) Share(idx ShareIndex) (PublicKeyShare, error) {
	pk, ok := s.Shares[idx]
	if !ok {
		return PublicKeyShare{}, ErrUnknownShareIndex.WithContext("index", idx)
	}
	return pk, nil
}

// Indices returns the share indices in ascending order.
func (s *PublicKeySet) Indices() []ShareIndex {
	return sortedIndices(s.Shares)
}

// VerifyShare checks a guardian's blinded signature share against its key.
func (s *PublicKeySet) VerifyShare(idx ShareIndex, bmsg BlindedMessage, share BlindedSignatureShare) error {
	pk, err := s.Share(idx)
	if err != nil {
		return err
	}
	if !VerifyBlindShare(bmsg, share, pk) {
		return ErrInvalidShare.WithContext("index", idx)
	}
	return nil
}

// Validate checks that the set describes a single degree threshold-1
// polynomial: the first threshold shares interpolate to the aggregate key at
// zero and to every remaining share at its own index.
func (s *PublicKeySet) Validate() error {
	if s.Threshold < 1 {
		return ErrInvalidParameters.WithDetails("threshold must be at least 1, got %d", s.Threshold)
	}
	if len(s.Shares) < s.Threshold {
		return ErrInvalidParameters.WithDetails("%d public key shares is below threshold %d", len(s.Shares), s.Threshold)
	}

	indices := s.Indices()
	if err := validateIndices(indices); err != nil {
		return err
	}
	base := indices[:s.Threshold]

	coefficients, err := LagrangeCoefficientsAtZero(base)
	if err != nil {
		return err
	}
	apk, err := combineG2(s.Shares, base, coefficients)
	if err != nil {
		return err
	}
	if !apk.Equal(&s.AggregatePublicKey.p) {
		return ErrInvalidShare.WithDetails("public key shares do not interpolate to the aggregate public key")
	}

	for _, idx := range indices[s.Threshold:] {
		coefficients, err := lagrangeCoefficientsAt(base, idx.scalar())
		if err != nil {
			return err
		}
		expected, err := combineG2(s.Shares, base, coefficients)
		if err != nil {
			return err
		}
		pk := s.Shares[idx]
		if !expected.Equal(&pk.p) {
			return ErrInvalidShare.
				WithContext("index", idx).
				WithDetails("public key share %d is not on the dealer polynomial", idx)
		}
	}
	return nil
}

// UnmarshalJSON decodes and validates a public key set.
func (s *PublicKeySet) UnmarshalJSON(data []byte) error {
	type plain PublicKeySet
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to decode public key set: %w", err)
	}
	decoded := PublicKeySet(p)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*s = decoded
	return nil
}
