// Package backup implements signed ecash backup requests. A wallet stores an
// encrypted snapshot of its notes with the federation, keyed by a BIP-340
// public key only the wallet controls.
package backup

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// MaxPayloadSize bounds the stored snapshot.
const MaxPayloadSize = 32 * 1024

var (
	// ErrInvalidSignature is returned when a request's signature does not
	// verify under its ID.
	ErrInvalidSignature = errors.New("backup: invalid signature")
	// ErrPayloadTooLarge is returned for snapshots over MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("backup: payload too large")
	// ErrKeyMismatch is returned when signing with a key that is not the
	// request's ID.
	ErrKeyMismatch = errors.New("backup: signing key does not match request id")
)

// ID is an x-only BIP-340 public key.
type ID [schnorr.PubKeyBytesLen]byte

// IDFromPrivateKey returns the backup ID controlled by priv.
func IDFromPrivateKey(priv *btcec.PrivateKey) ID {
	var id ID
	copy(id[:], schnorr.SerializePubKey(priv.PubKey()))
	return id
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("backup id: %w", err)
	}
	if _, err := schnorr.ParsePubKey(b); err != nil {
		return fmt.Errorf("backup id: %w", err)
	}
	copy(id[:], b)
	return nil
}

// BackupRequest asks the federation to store Payload under ID.
type BackupRequest struct {
	ID        ID        `json:"id"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

type requestJSON struct {
	ID        ID        `json:"id"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Encode returns the canonical encoding: ID, uvarint payload length,
// payload, then the timestamp as big-endian unix seconds and nanoseconds.
func (r *BackupRequest) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(r.ID[:])
	buf.Write(binary.AppendUvarint(nil, uint64(len(r.Payload))))
	buf.Write(r.Payload)
	ts := r.Timestamp.UTC()
	buf.Write(binary.BigEndian.AppendUint64(nil, uint64(ts.Unix())))
	buf.Write(binary.BigEndian.AppendUint32(nil, uint32(ts.Nanosecond())))
	return buf.Bytes()
}

// Hash is SHA-256 over the canonical encoding. It is the signed digest.
func (r *BackupRequest) Hash() [sha256.Size]byte {
	return sha256.Sum256(r.Encode())
}

// Sign signs the request with the key behind its ID.
func (r BackupRequest) Sign(priv *btcec.PrivateKey) (*SignedBackupRequest, error) {
	if len(r.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(r.Payload))
	}
	if IDFromPrivateKey(priv) != r.ID {
		return nil, ErrKeyMismatch
	}
	hash := r.Hash()
	sig, err := schnorr.Sign(priv, hash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign backup request: %w", err)
	}
	return &SignedBackupRequest{Request: r, Signature: sig}, nil
}

func (r BackupRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestJSON{
		ID:        r.ID,
		Payload:   hex.EncodeToString(r.Payload),
		Timestamp: r.Timestamp,
	})
}

func (r *BackupRequest) UnmarshalJSON(data []byte) error {
	var j requestJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	payload, err := hex.DecodeString(j.Payload)
	if err != nil {
		return fmt.Errorf("backup payload: %w", err)
	}
	*r = BackupRequest{ID: j.ID, Payload: payload, Timestamp: j.Timestamp}
	return nil
}

// SignedBackupRequest is a BackupRequest with its BIP-340 signature.
type SignedBackupRequest struct {
	Request   BackupRequest
	Signature *schnorr.Signature
}

// VerifyValid checks the signature and size limit, returning the request.
func (s *SignedBackupRequest) VerifyValid() (*BackupRequest, error) {
	if len(s.Request.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(s.Request.Payload))
	}
	if s.Signature == nil {
		return nil, ErrInvalidSignature
	}
	pub, err := schnorr.ParsePubKey(s.Request.ID[:])
	if err != nil {
		return nil, fmt.Errorf("invalid backup id: %w", err)
	}
	hash := s.Request.Hash()
	if !s.Signature.Verify(hash[:], pub) {
		return nil, ErrInvalidSignature
	}
	return &s.Request, nil
}

type signedJSON struct {
	requestJSON
	Signature string `json:"signature"`
}

// MarshalJSON flattens the request fields next to the hex signature.
func (s SignedBackupRequest) MarshalJSON() ([]byte, error) {
	var sig string
	if s.Signature != nil {
		sig = hex.EncodeToString(s.Signature.Serialize())
	}
	return json.Marshal(signedJSON{
		requestJSON: requestJSON{
			ID:        s.Request.ID,
			Payload:   hex.EncodeToString(s.Request.Payload),
			Timestamp: s.Request.Timestamp,
		},
		Signature: sig,
	})
}

func (s *SignedBackupRequest) UnmarshalJSON(data []byte) error {
	var j signedJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	payload, err := hex.DecodeString(j.Payload)
	if err != nil {
		return fmt.Errorf("backup payload: %w", err)
	}
	rawSig, err := hex.DecodeString(j.Signature)
	if err != nil {
		return fmt.Errorf("backup signature: %w", err)
	}
	sig, err := schnorr.ParseSignature(rawSig)
	if err != nil {
		return fmt.Errorf("backup signature: %w", err)
	}
	*s = SignedBackupRequest{
		Request:   BackupRequest{ID: j.ID, Payload: payload, Timestamp: j.Timestamp},
		Signature: sig,
	}
	return nil
}
