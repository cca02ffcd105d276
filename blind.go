package tbs

import (
	"io"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
)

// MessageDST is the RFC 9380 domain separation tag for hashing note
// commitments onto G1.
const MessageDST = "TBS_BLS12381G1_XMD:SHA-256_SSWU_RO_MINT_"

// Message is an application message mapped onto G1.
type Message struct {
	p bls12381.G1Affine
}

// BlindingKey is the requester's secret blinding factor.
type BlindingKey struct {
	Scalar
}

// BlindedMessage is Message^{BlindingKey}.
type BlindedMessage struct {
	p bls12381.G1Affine
}

// MessageFromBytes hashes msg onto G1. Equal inputs give equal points.
func MessageFromBytes(msg []byte) Message {
	p, err := bls12381.HashToG1(msg, []byte(MessageDST))
	if err != nil {
		// Only reachable with a DST longer than 255 bytes.
		panic("tbs: hash to curve: " + err.Error())
	}
	return Message{p: p}
}

// RandomBlindingKey samples a fresh nonzero blinding key from crypto/rand.
func RandomBlindingKey() (BlindingKey, error) {
	return RandomBlindingKeyFrom(nil)
}

// RandomBlindingKeyFrom samples a nonzero blinding key from r.
func RandomBlindingKeyFrom(r io.Reader) (BlindingKey, error) {
	s, err := RandomScalar(r)
	if err != nil {
		return BlindingKey{}, err
	}
	return BlindingKey{s}, nil
}

// BlindMessage scales the message point by the blinding key.
func BlindMessage(msg Message, bk BlindingKey) (BlindedMessage, error) {
	if bk.IsZero() {
		return BlindedMessage{}, ErrNonInvertibleKey
	}
	return BlindedMessage{p: g1Mul(msg.p, bk.Scalar)}, nil
}

// Blind samples a fresh blinding key and blinds msg with it. The key must be
// kept to unblind the aggregated signature.
func Blind(msg Message) (BlindedMessage, BlindingKey, error) {
	bk, err := RandomBlindingKey()
	if err != nil {
		return BlindedMessage{}, BlindingKey{}, err
	}
	bmsg, err := BlindMessage(msg, bk)
	if err != nil {
		return BlindedMessage{}, BlindingKey{}, err
	}
	return bmsg, bk, nil
}
