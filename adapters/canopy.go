// Package adapters binds guardian signature shares to the identities the
// ordering layer already knows, so a bad share can be attributed to the
// guardian that sent it.
package adapters

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/canopy-network/canopy/lib/crypto"
	"go.uber.org/zap"

	"github.com/canopy-network/canopy/lib/tbs"
)

const attestationDomain = "TBS_SHARE_ATTESTATION_V1"

// RequestID identifies one issuance request.
type RequestID [sha256.Size]byte

// RequestIDFor derives the request ID from the blinded message being signed.
func RequestIDFor(bmsg tbs.BlindedMessage) RequestID {
	return sha256.Sum256(append([]byte(attestationDomain), bmsg.Bytes()...))
}

// ShareAttestation is a signature share signed by its guardian's canopy
// BLS identity key.
type ShareAttestation struct {
	RequestID  RequestID                 `json:"request_id"`
	ShareIndex tbs.ShareIndex            `json:"share_index"`
	Share      tbs.BlindedSignatureShare `json:"share"`
	Signature  []byte                    `json:"signature"`
}

func (a *ShareAttestation) digest() []byte {
	buf := make([]byte, 0, len(attestationDomain)+len(a.RequestID)+8+tbs.G1PointSize)
	buf = append(buf, attestationDomain...)
	buf = append(buf, a.RequestID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(a.ShareIndex))
	buf = append(buf, a.Share.Bytes()...)
	return buf
}

// GuardianSigner signs issuance requests on behalf of one guardian.
type GuardianSigner struct {
	index    tbs.ShareIndex
	share    tbs.SecretKeyShare
	identity crypto.PrivateKeyI
}

// NewGuardianSigner pairs a guardian's key share with its identity key.
func NewGuardianSigner(index tbs.ShareIndex, share tbs.SecretKeyShare, identity crypto.PrivateKeyI) (*GuardianSigner, error) {
	if index == 0 {
		return nil, tbs.ErrReservedShareIndex
	}
	if identity == nil {
		return nil, fmt.Errorf("identity key is required")
	}
	return &GuardianSigner{index: index, share: share, identity: identity}, nil
}

// Sign produces the attested share for bmsg.
func (g *GuardianSigner) Sign(bmsg tbs.BlindedMessage) *ShareAttestation {
	a := &ShareAttestation{
		RequestID:  RequestIDFor(bmsg),
		ShareIndex: g.index,
		Share:      tbs.SignMessage(bmsg, g.share),
	}
	a.Signature = g.identity.Sign(a.digest())
	return a
}

// AttestationVerifier checks attested shares before they reach a Combiner.
type AttestationVerifier struct {
	identities map[tbs.ShareIndex]crypto.PublicKeyI
	log        *zap.Logger
}

// NewAttestationVerifier maps share indices to guardian identity keys.
func NewAttestationVerifier(identities map[tbs.ShareIndex]crypto.PublicKeyI, log *zap.Logger) *AttestationVerifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttestationVerifier{identities: identities, log: log.Named("attestation")}
}

// VerifyAttestation checks that a was signed by the identity registered for
// its share index and answers the given request.
func (v *AttestationVerifier) VerifyAttestation(id RequestID, a *ShareAttestation) error {
	pub, ok := v.identities[a.ShareIndex]
	if !ok {
		return tbs.ErrUnknownShareIndex.WithContext("index", a.ShareIndex)
	}
	if a.RequestID != id {
		return tbs.ErrInvalidShare.WithDetails("attestation answers a different request")
	}
	if !pub.VerifyBytes(a.digest(), a.Signature) {
		return tbs.ErrInvalidShare.
			WithContext("index", a.ShareIndex).
			WithDetails("identity signature does not verify")
	}
	return nil
}

// Collect verifies an attestation and feeds its share to c. The returned
// error names the guardian responsible.
func (v *AttestationVerifier) Collect(c *tbs.Combiner, bmsg tbs.BlindedMessage, a *ShareAttestation) error {
	if err := v.VerifyAttestation(RequestIDFor(bmsg), a); err != nil {
		v.log.Warn("dropping unattested share",
			zap.Uint64("share_index", uint64(a.ShareIndex)),
			zap.Error(err))
		return err
	}
	if err := c.AddShare(a.ShareIndex, a.Share); err != nil {
		return fmt.Errorf("guardian %d: %w", a.ShareIndex, err)
	}
	return nil
}
