package tbs

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Encoded sizes of the canonical wire representations.
const (
	ScalarSize  = fr.Bytes
	G1PointSize = bls12381.SizeOfG1AffineCompressed
	G2PointSize = bls12381.SizeOfG2AffineCompressed
)

// wideScalarBytes is the amount of randomness reduced into one scalar, wide
// enough that the modular bias is negligible.
const wideScalarBytes = 64

// Scalar is an element of the BLS12-381 scalar field.
type Scalar struct {
	e fr.Element
}

// ScalarZero returns the additive identity
func ScalarZero() Scalar {
	return Scalar{}
}

// ScalarOne returns the multiplicative identity
func ScalarOne() Scalar {
	var s Scalar
	s.e.SetOne()
	return s
}

// ScalarFromUint64 maps a small integer into the field
func ScalarFromUint64(v uint64) Scalar {
	var s Scalar
	s.e.SetUint64(v)
	return s
}

// ScalarFromBytes decodes a canonical 32-byte big-endian scalar.
func ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != ScalarSize {
		return Scalar{}, ErrMalformedEncoding.WithDetails("scalar must be %d bytes, got %d", ScalarSize, len(b))
	}
	if new(big.Int).SetBytes(b).Cmp(fr.Modulus()) >= 0 {
		return Scalar{}, ErrMalformedEncoding.WithDetails("scalar is not reduced modulo the group order")
	}
	var s Scalar
	s.e.SetBytes(b)
	return s, nil
}

// ScalarFromUniformBytes reduces an arbitrary byte string modulo the group
// order. Callers should pass at least 48 bytes of uniform input.
func ScalarFromUniformBytes(b []byte) Scalar {
	var s Scalar
	s.e.SetBigInt(new(big.Int).SetBytes(b))
	return s
}

// RandomScalar samples a uniformly random nonzero scalar from r. A nil reader
// selects crypto/rand.
func RandomScalar(r io.Reader) (Scalar, error) {
	if r == nil {
		r = rand.Reader
	}
	var buf [wideScalarBytes]byte
	defer ZeroizeBytes(buf[:])
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Scalar{}, ErrRandomnessGeneration.WithCause(err)
		}
		s := ScalarFromUniformBytes(buf[:])
		if !s.IsZero() {
			return s, nil
		}
	}
}

func (s Scalar) Add(o Scalar) Scalar {
	var r Scalar
	r.e.Add(&s.e, &o.e)
	return r
}

func (s Scalar) Sub(o Scalar) Scalar {
	var r Scalar
	r.e.Sub(&s.e, &o.e)
	return r
}

func (s Scalar) Mul(o Scalar) Scalar {
	var r Scalar
	r.e.Mul(&s.e, &o.e)
	return r
}

func (s Scalar) Neg() Scalar {
	var r Scalar
	r.e.Neg(&s.e)
	return r
}

// Invert returns the multiplicative inverse. Zero has none.
func (s Scalar) Invert() (Scalar, error) {
	if s.IsZero() {
		return Scalar{}, ErrNonInvertibleKey.WithDetails("zero scalar has no inverse")
	}
	var r Scalar
	r.e.Inverse(&s.e)
	return r, nil
}

func (s Scalar) IsZero() bool {
	return s.e.IsZero()
}

func (s Scalar) Equal(o Scalar) bool {
	return s.e.Equal(&o.e)
}

// Bytes returns the canonical 32-byte big-endian encoding
func (s Scalar) Bytes() []byte {
	b := s.e.Bytes()
	return b[:]
}

func (s Scalar) String() string {
	return hex.EncodeToString(s.Bytes())
}

// Zeroize clears the scalar in place
func (s *Scalar) Zeroize() {
	s.e.SetZero()
}

func (s Scalar) bigInt() *big.Int {
	return s.e.BigInt(new(big.Int))
}

func (s Scalar) MarshalBinary() ([]byte, error) {
	return s.Bytes(), nil
}

func (s *Scalar) UnmarshalBinary(b []byte) error {
	d, err := ScalarFromBytes(b)
	if err != nil {
		return err
	}
	*s = d
	return nil
}

func (s Scalar) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scalar) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return ErrMalformedEncoding.WithCause(err)
	}
	return s.UnmarshalBinary(b)
}

// g1Generator and g2Generator are library constants, not mutable state.
func g1Generator() bls12381.G1Affine {
	_, _, g1, _ := bls12381.Generators()
	return g1
}

func g2Generator() bls12381.G2Affine {
	_, _, _, g2 := bls12381.Generators()
	return g2
}

func g1Mul(p bls12381.G1Affine, s Scalar) bls12381.G1Affine {
	var r bls12381.G1Affine
	r.ScalarMultiplication(&p, s.bigInt())
	return r
}

func g2Mul(p bls12381.G2Affine, s Scalar) bls12381.G2Affine {
	var r bls12381.G2Affine
	r.ScalarMultiplication(&p, s.bigInt())
	return r
}

func decodeG1(b []byte, what string) (bls12381.G1Affine, error) {
	var p bls12381.G1Affine
	if len(b) != G1PointSize {
		return p, ErrMalformedEncoding.WithDetails("%s must be %d bytes, got %d", what, G1PointSize, len(b)).
			WithContext("type", what)
	}
	// SetBytes checks curve and subgroup membership for compressed input.
	if _, err := p.SetBytes(b); err != nil {
		return bls12381.G1Affine{}, ErrMalformedEncoding.WithCause(err).WithContext("type", what)
	}
	return p, nil
}

func decodeG2(b []byte, what string) (bls12381.G2Affine, error) {
	var p bls12381.G2Affine
	if len(b) != G2PointSize {
		return p, ErrMalformedEncoding.WithDetails("%s must be %d bytes, got %d", what, G2PointSize, len(b)).
			WithContext("type", what)
	}
	if _, err := p.SetBytes(b); err != nil {
		return bls12381.G2Affine{}, ErrMalformedEncoding.WithCause(err).WithContext("type", what)
	}
	return p, nil
}

func decodeHex(text []byte) ([]byte, error) {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return nil, ErrMalformedEncoding.WithCause(err)
	}
	return b, nil
}
