package tbs

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// HashAlgorithm selects the derivation function for wallet secrets
type HashAlgorithm int

const (
	// SHA256_HKDF uses HKDF-SHA256
	SHA256_HKDF HashAlgorithm = iota
	// BLAKE2B uses Blake2b-512 with domain separation
	BLAKE2B
	// SHAKE256 uses the SHAKE256 XOF
	SHAKE256
)

func (a HashAlgorithm) String() string {
	switch a {
	case SHA256_HKDF:
		return "sha256-hkdf"
	case BLAKE2B:
		return "blake2b"
	case SHAKE256:
		return "shake256"
	default:
		return fmt.Sprintf("HashAlgorithm(%d)", int(a))
	}
}

const (
	derivationDomain = "TBS_NOTE_DERIVATION_V1"

	labelBlindingKey = "blinding-key"
	labelNoteSecret  = "note-secret"

	// MinRootSecretSize is the minimum entropy accepted for a wallet root.
	MinRootSecretSize = 32
	// NoteSecretSize is the length of a derived note secret.
	NoteSecretSize = 32
)

// NoteDeriver re-derives per-note secrets and blinding keys from a wallet
// root secret, so notes issued before a crash can be recovered and
// re-unblinded. Fresh requests that need no recovery should use Blind.
type NoteDeriver struct {
	root []byte
	alg  HashAlgorithm
}

// NewNoteDeriver creates a deriver over a copy of root.
func NewNoteDeriver(root []byte, alg HashAlgorithm) (*NoteDeriver, error) {
	if len(root) < MinRootSecretSize {
		return nil, ErrInvalidParameters.WithDetails("root secret must be at least %d bytes, got %d", MinRootSecretSize, len(root))
	}
	switch alg {
	case SHA256_HKDF, BLAKE2B, SHAKE256:
	default:
		return nil, ErrInvalidParameters.WithDetails("unsupported hash algorithm: %s", alg)
	}
	cp := make([]byte, len(root))
	copy(cp, root)
	return &NoteDeriver{root: cp, alg: alg}, nil
}

// DeriveBlindingKey derives the blinding key of an untiered note. It is
// NewNoteDeriver(root, alg).BlindingKey(0, noteIndex).
func DeriveBlindingKey(root []byte, noteIndex uint64, alg HashAlgorithm) (BlindingKey, error) {
	d, err := NewNoteDeriver(root, alg)
	if err != nil {
		return BlindingKey{}, err
	}
	defer d.Zeroize()
	return d.BlindingKey(0, noteIndex)
}

// BlindingKey derives the blinding key for the index-th note of a tier.
func (d *NoteDeriver) BlindingKey(amountMsat, index uint64) (BlindingKey, error) {
	out, err := d.expand(labelBlindingKey, amountMsat, index, wideScalarBytes)
	if err != nil {
		return BlindingKey{}, err
	}
	defer ZeroizeBytes(out)

	s := ScalarFromUniformBytes(out)
	if s.IsZero() {
		// Probability 2^-255; surfaced rather than silently re-derived.
		return BlindingKey{}, ErrNonInvertibleKey.WithDetails("derived blinding key is zero")
	}
	return BlindingKey{s}, nil
}

// NoteSecret derives the note secret whose commitment becomes the signed
// message.
func (d *NoteDeriver) NoteSecret(amountMsat, index uint64) ([]byte, error) {
	return d.expand(labelNoteSecret, amountMsat, index, NoteSecretSize)
}

// Zeroize clears the root secret.
func (d *NoteDeriver) Zeroize() {
	ZeroizeBytes(d.root)
}

func (d *NoteDeriver) info(label string, amountMsat, index uint64) []byte {
	info := make([]byte, 0, len(derivationDomain)+len(label)+2+16)
	info = append(info, derivationDomain...)
	info = append(info, byte(len(label)))
	info = append(info, label...)
	info = binary.BigEndian.AppendUint64(info, amountMsat)
	info = binary.BigEndian.AppendUint64(info, index)
	return info
}

func (d *NoteDeriver) expand(label string, amountMsat, index uint64, size int) ([]byte, error) {
	info := d.info(label, amountMsat, index)
	out := make([]byte, size)

	switch d.alg {
	case SHA256_HKDF:
		r := hkdf.New(sha256.New, d.root, []byte(derivationDomain), info)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, fmt.Errorf("hkdf expand: %w", err)
		}
	case BLAKE2B:
		// Root secrets longer than a Blake2b key are pre-hashed.
		key := d.root
		if len(key) > blake2b.Size {
			sum := blake2b.Sum512(key)
			key = sum[:]
		}
		h, err := blake2b.New512(key)
		if err != nil {
			return nil, fmt.Errorf("blake2b: %w", err)
		}
		var block []byte
		for counter := uint32(0); len(block) < size; counter++ {
			h.Reset()
			h.Write(info)
			h.Write(binary.BigEndian.AppendUint32(nil, counter))
			block = h.Sum(block)
		}
		copy(out, block)
		ZeroizeBytes(block)
	case SHAKE256:
		h := sha3.NewShake256()
		h.Write([]byte(derivationDomain))
		h.Write(binary.BigEndian.AppendUint32(nil, uint32(len(d.root))))
		h.Write(d.root)
		h.Write(info)
		if _, err := io.ReadFull(h, out); err != nil {
			return nil, fmt.Errorf("shake256: %w", err)
		}
	default:
		return nil, ErrInvalidParameters.WithDetails("unsupported hash algorithm: %s", d.alg)
	}
	return out, nil
}
