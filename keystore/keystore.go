// Package keystore persists a guardian's secret key shares encrypted under a
// passphrase, next to the public key sets they belong to.
package keystore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/canopy-network/canopy/lib/tbs"
	"github.com/canopy-network/canopy/lib/tbs/tiered"
)

const (
	// Version is the current file format.
	Version = 1

	saltSize = 16
	filePerm = 0o600
)

var (
	// ErrDecrypt covers a wrong passphrase and any tampering with the file.
	ErrDecrypt = errors.New("keystore: decryption failed")
	// ErrUnsupportedVersion is returned for files written by a newer format.
	ErrUnsupportedVersion = errors.New("keystore: unsupported version")
)

// Params are the argon2id cost parameters.
type Params struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory_kib"`
	Threads uint8  `json:"threads"`
}

// DefaultParams follow the RFC 9106 second recommended option.
var DefaultParams = Params{Time: 3, Memory: 64 * 1024, Threads: 4}

// Keystore is one guardian's key material for an epoch.
type Keystore struct {
	ShareIndex tbs.ShareIndex
	Secrets    tiered.Tiered[tbs.SecretKeyShare]
	PublicKeys tiered.Tiered[*tbs.PublicKeySet]
}

// Validate checks that every tier has a public key set and that each secret
// matches the published key share.
func (k *Keystore) Validate() error {
	if !tiered.StructuralEq(k.Secrets, k.PublicKeys) {
		return fmt.Errorf("keystore: secret and public tiers differ")
	}
	var err error
	k.Secrets.Range(func(amount tiered.Amount, sk tbs.SecretKeyShare) bool {
		set, _ := k.PublicKeys.Get(amount)
		if set == nil {
			err = fmt.Errorf("keystore: missing public key set for tier %s", amount)
			return false
		}
		var pk tbs.PublicKeyShare
		if pk, err = set.Share(k.ShareIndex); err != nil {
			return false
		}
		if !sk.PublicKeyShare().Equal(pk) {
			err = fmt.Errorf("keystore: secret for tier %s does not match public key share %d", amount, k.ShareIndex)
			return false
		}
		return true
	})
	return err
}

// Header is the unencrypted part of a keystore file. It is authenticated as
// associated data.
type Header struct {
	Version    int                              `json:"version"`
	ShareIndex tbs.ShareIndex                   `json:"share_index"`
	KDF        Params                           `json:"kdf"`
	Salt       []byte                           `json:"salt"`
	PublicKeys tiered.Tiered[*tbs.PublicKeySet] `json:"public_keys"`
}

type file struct {
	Header     json.RawMessage `json:"header"`
	Nonce      []byte          `json:"nonce"`
	Ciphertext []byte          `json:"ciphertext"`
}

func deriveKey(passphrase, salt []byte, p Params) []byte {
	return argon2.IDKey(passphrase, salt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize)
}

// Seal encrypts ks. r supplies the salt and nonce; nil means crypto/rand.
func Seal(ks *Keystore, passphrase []byte, params Params, r io.Reader) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	if err := ks.Validate(); err != nil {
		return nil, err
	}

	plaintext, err := tiered.Encode(ks.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode secrets: %w", err)
	}
	defer tbs.ZeroizeBytes(plaintext)

	salt := make([]byte, saltSize)
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, tbs.ErrRandomnessGeneration.WithCause(err)
	}
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, tbs.ErrRandomnessGeneration.WithCause(err)
	}

	header, err := json.Marshal(Header{
		Version:    Version,
		ShareIndex: ks.ShareIndex,
		KDF:        params,
		Salt:       salt,
		PublicKeys: ks.PublicKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}

	key := deriveKey(passphrase, salt, params)
	defer tbs.ZeroizeBytes(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	// Not indented: the header bytes are associated data and must survive
	// re-encoding unchanged.
	return json.Marshal(file{
		Header:     header,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, header),
	})
}

// ReadHeader returns the public part of a keystore without decrypting it.
func ReadHeader(data []byte) (*Header, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	return parseHeader(f.Header)
}

func parseHeader(raw json.RawMessage) (*Header, error) {
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("keystore header: %w", err)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return &h, nil
}

// Open decrypts a sealed keystore.
func Open(data, passphrase []byte) (*Keystore, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	h, err := parseHeader(f.Header)
	if err != nil {
		return nil, err
	}
	if len(f.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrDecrypt
	}

	key := deriveKey(passphrase, h.Salt, h.KDF)
	defer tbs.ZeroizeBytes(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, f.Nonce, f.Ciphertext, f.Header)
	if err != nil {
		return nil, ErrDecrypt
	}
	defer tbs.ZeroizeBytes(plaintext)

	secrets, err := tiered.Decode[tbs.SecretKeyShare](plaintext)
	if err != nil {
		return nil, fmt.Errorf("keystore secrets: %w", err)
	}
	ks := &Keystore{
		ShareIndex: h.ShareIndex,
		Secrets:    secrets,
		PublicKeys: h.PublicKeys,
	}
	if err := ks.Validate(); err != nil {
		return nil, err
	}
	return ks, nil
}

// Store keeps one keystore file per guardian in a directory.
type Store struct {
	dir    string
	params Params
	log    *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithParams overrides the argon2id cost.
func WithParams(p Params) Option {
	return func(s *Store) { s.params = p }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore returns a store rooted at dir.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, params: DefaultParams, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("keystore")
	return s
}

// Path returns the file holding guardian idx's keys.
func (s *Store) Path(idx tbs.ShareIndex) string {
	return filepath.Join(s.dir, fmt.Sprintf("guardian-%d.json", idx))
}

// Save seals ks and replaces its file atomically.
func (s *Store) Save(ks *Keystore, passphrase []byte) error {
	data, err := Seal(ks, passphrase, s.params, nil)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create keystore dir: %w", err)
	}
	path := s.Path(ks.ShareIndex)
	if err := renameio.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write keystore: %w", err)
	}
	s.log.Info("saved keystore",
		zap.Uint64("share_index", uint64(ks.ShareIndex)),
		zap.Int("tiers", ks.Secrets.Len()),
		zap.String("path", path))
	return nil
}

// Load opens guardian idx's keystore.
func (s *Store) Load(idx tbs.ShareIndex, passphrase []byte) (*Keystore, error) {
	path := s.Path(idx)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}
	ks, err := Open(data, passphrase)
	if err != nil {
		s.log.Warn("failed to open keystore", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	if ks.ShareIndex != idx {
		return nil, fmt.Errorf("keystore %s holds share %d, expected %d", path, ks.ShareIndex, idx)
	}
	return ks, nil
}
