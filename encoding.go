package tbs

import (
	"encoding/hex"
)

// Canonical encodings: G1 values are 48-byte compressed points, G2 values
// 96-byte compressed points, scalars 32 bytes big-endian. Decoders reject
// wrong lengths, points off the curve and points outside the prime-order
// subgroup with ErrMalformedEncoding.

// SecretKeyShareFromBytes decodes a secret key share.
func SecretKeyShareFromBytes(b []byte) (SecretKeyShare, error) {
	s, err := ScalarFromBytes(b)
	if err != nil {
		return SecretKeyShare{}, err
	}
	return SecretKeyShare{s}, nil
}

// String never prints the secret.
func (sk SecretKeyShare) String() string {
	return "SecretKeyShare(redacted)"
}

// MarshalText shadows the Scalar codec so JSON and reflected log fields
// stay redacted. Use MarshalBinary to persist a share.
func (sk SecretKeyShare) MarshalText() ([]byte, error) {
	return []byte(sk.String()), nil
}

func (sk *SecretKeyShare) UnmarshalText([]byte) error {
	return ErrMalformedEncoding.WithDetails("secret key shares have no text encoding")
}

// BlindingKeyFromBytes decodes a blinding key. A zero key decodes
// successfully and is rejected when used.
func BlindingKeyFromBytes(b []byte) (BlindingKey, error) {
	s, err := ScalarFromBytes(b)
	if err != nil {
		return BlindingKey{}, err
	}
	return BlindingKey{s}, nil
}

// String never prints the key.
func (bk BlindingKey) String() string {
	return "BlindingKey(redacted)"
}

func (bk BlindingKey) MarshalText() ([]byte, error) {
	return []byte(bk.String()), nil
}

func (bk *BlindingKey) UnmarshalText([]byte) error {
	return ErrMalformedEncoding.WithDetails("blinding keys have no text encoding")
}

// MessageFromEncoding decodes a message point produced by Message.Bytes.
// MessageFromBytes hashes raw application bytes instead.
func MessageFromEncoding(b []byte) (Message, error) {
	p, err := decodeG1(b, "message")
	if err != nil {
		return Message{}, err
	}
	return Message{p: p}, nil
}

func (v Message) Bytes() []byte {
	b := v.p.Bytes()
	return b[:]
}

func (v Message) Equal(o Message) bool {
	return v.p.Equal(&o.p)
}

func (v Message) String() string {
	return hex.EncodeToString(v.Bytes())
}

func (v Message) MarshalBinary() ([]byte, error) {
	return v.Bytes(), nil
}

func (v *Message) UnmarshalBinary(b []byte) error {
	d, err := MessageFromEncoding(b)
	if err != nil {
		return err
	}
	*v = d
	return nil
}

func (v Message) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Message) UnmarshalText(text []byte) error {
	b, err := decodeHex(text)
	if err != nil {
		return err
	}
	return v.UnmarshalBinary(b)
}

// BlindedMessageFromBytes decodes a blinded message.
func BlindedMessageFromBytes(b []byte) (BlindedMessage, error) {
	p, err := decodeG1(b, "blinded message")
	if err != nil {
		return BlindedMessage{}, err
	}
	return BlindedMessage{p: p}, nil
}

func (v BlindedMessage) Bytes() []byte {
	b := v.p.Bytes()
	return b[:]
}

func (v BlindedMessage) Equal(o BlindedMessage) bool {
	return v.p.Equal(&o.p)
}

func (v BlindedMessage) String() string {
	return hex.EncodeToString(v.Bytes())
}

func (v BlindedMessage) MarshalBinary() ([]byte, error) {
	return v.Bytes(), nil
}

func (v *BlindedMessage) UnmarshalBinary(b []byte) error {
	d, err := BlindedMessageFromBytes(b)
	if err != nil {
		return err
	}
	*v = d
	return nil
}

func (v BlindedMessage) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *BlindedMessage) UnmarshalText(text []byte) error {
	b, err := decodeHex(text)
	if err != nil {
		return err
	}
	return v.UnmarshalBinary(b)
}

// BlindedSignatureShareFromBytes decodes a blinded signature share.
func BlindedSignatureShareFromBytes(b []byte) (BlindedSignatureShare, error) {
	p, err := decodeG1(b, "blinded signature share")
	if err != nil {
		return BlindedSignatureShare{}, err
	}
	return BlindedSignatureShare{p: p}, nil
}

func (v BlindedSignatureShare) Bytes() []byte {
	b := v.p.Bytes()
	return b[:]
}

func (v BlindedSignatureShare) Equal(o BlindedSignatureShare) bool {
	return v.p.Equal(&o.p)
}

func (v BlindedSignatureShare) String() string {
	return hex.EncodeToString(v.Bytes())
}

func (v BlindedSignatureShare) MarshalBinary() ([]byte, error) {
	return v.Bytes(), nil
}

func (v *BlindedSignatureShare) UnmarshalBinary(b []byte) error {
	d, err := BlindedSignatureShareFromBytes(b)
	if err != nil {
		return err
	}
	*v = d
	return nil
}

func (v BlindedSignatureShare) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *BlindedSignatureShare) UnmarshalText(text []byte) error {
	b, err := decodeHex(text)
	if err != nil {
		return err
	}
	return v.UnmarshalBinary(b)
}

// BlindedSignatureFromBytes decodes a blinded signature.
func BlindedSignatureFromBytes(b []byte) (BlindedSignature, error) {
	p, err := decodeG1(b, "blinded signature")
	if err != nil {
		return BlindedSignature{}, err
	}
	return BlindedSignature{p: p}, nil
}

func (v BlindedSignature) Bytes() []byte {
	b := v.p.Bytes()
	return b[:]
}

func (v BlindedSignature) Equal(o BlindedSignature) bool {
	return v.p.Equal(&o.p)
}

func (v BlindedSignature) String() string {
	return hex.EncodeToString(v.Bytes())
}

func (v BlindedSignature) MarshalBinary() ([]byte, error) {
	return v.Bytes(), nil
}

func (v *BlindedSignature) UnmarshalBinary(b []byte) error {
	d, err := BlindedSignatureFromBytes(b)
	if err != nil {
		return err
	}
	*v = d
	return nil
}

func (v BlindedSignature) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *BlindedSignature) UnmarshalText(text []byte) error {
	b, err := decodeHex(text)
	if err != nil {
		return err
	}
	return v.UnmarshalBinary(b)
}

// SignatureFromBytes decodes a signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	p, err := decodeG1(b, "signature")
	if err != nil {
		return Signature{}, err
	}
	return Signature{p: p}, nil
}

func (v Signature) Bytes() []byte {
	b := v.p.Bytes()
	return b[:]
}

func (v Signature) Equal(o Signature) bool {
	return v.p.Equal(&o.p)
}

func (v Signature) String() string {
	return hex.EncodeToString(v.Bytes())
}

func (v Signature) MarshalBinary() ([]byte, error) {
	return v.Bytes(), nil
}

func (v *Signature) UnmarshalBinary(b []byte) error {
	d, err := SignatureFromBytes(b)
	if err != nil {
		return err
	}
	*v = d
	return nil
}

func (v Signature) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Signature) UnmarshalText(text []byte) error {
	b, err := decodeHex(text)
	if err != nil {
		return err
	}
	return v.UnmarshalBinary(b)
}

// PublicKeyShareFromBytes decodes a public key share.
func PublicKeyShareFromBytes(b []byte) (PublicKeyShare, error) {
	p, err := decodeG2(b, "public key share")
	if err != nil {
		return PublicKeyShare{}, err
	}
	return PublicKeyShare{p: p}, nil
}

func (v PublicKeyShare) Bytes() []byte {
	b := v.p.Bytes()
	return b[:]
}

func (v PublicKeyShare) Equal(o PublicKeyShare) bool {
	return v.p.Equal(&o.p)
}

func (v PublicKeyShare) String() string {
	return hex.EncodeToString(v.Bytes())
}

func (v PublicKeyShare) MarshalBinary() ([]byte, error) {
	return v.Bytes(), nil
}

func (v *PublicKeyShare) UnmarshalBinary(b []byte) error {
	d, err := PublicKeyShareFromBytes(b)
	if err != nil {
		return err
	}
	*v = d
	return nil
}

func (v PublicKeyShare) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *PublicKeyShare) UnmarshalText(text []byte) error {
	b, err := decodeHex(text)
	if err != nil {
		return err
	}
	return v.UnmarshalBinary(b)
}

// AggregatePublicKeyFromBytes decodes an aggregate public key. The identity
// is rejected since a zero federation secret signs nothing.
func AggregatePublicKeyFromBytes(b []byte) (AggregatePublicKey, error) {
	p, err := decodeG2(b, "aggregate public key")
	if err != nil {
		return AggregatePublicKey{}, err
	}
	if p.IsInfinity() {
		return AggregatePublicKey{}, ErrMalformedEncoding.WithDetails("aggregate public key is the identity").
			WithContext("type", "aggregate public key")
	}
	return AggregatePublicKey{p: p}, nil
}

func (v AggregatePublicKey) Bytes() []byte {
	b := v.p.Bytes()
	return b[:]
}

func (v AggregatePublicKey) Equal(o AggregatePublicKey) bool {
	return v.p.Equal(&o.p)
}

func (v AggregatePublicKey) String() string {
	return hex.EncodeToString(v.Bytes())
}

func (v AggregatePublicKey) MarshalBinary() ([]byte, error) {
	return v.Bytes(), nil
}

func (v *AggregatePublicKey) UnmarshalBinary(b []byte) error {
	d, err := AggregatePublicKeyFromBytes(b)
	if err != nil {
		return err
	}
	*v = d
	return nil
}

func (v AggregatePublicKey) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *AggregatePublicKey) UnmarshalText(text []byte) error {
	b, err := decodeHex(text)
	if err != nil {
		return err
	}
	return v.UnmarshalBinary(b)
}
