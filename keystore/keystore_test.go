package keystore

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/canopy-network/canopy/lib/tbs"
	"github.com/canopy-network/canopy/lib/tbs/tiered"
)

// testParams keep argon2id cheap in tests.
var testParams = Params{Time: 1, Memory: 64, Threads: 1}

func newKeystores(t *testing.T, threshold, keys int) []*Keystore {
	t.Helper()
	tiers, err := tiered.GenDenominations(2, 4)
	require.NoError(t, err)
	dealt, err := (&tbs.Dealer{Threshold: threshold, Keys: keys}).GenerateTiered(tiers)
	require.NoError(t, err)
	sets := tbs.TieredPublicKeySets(dealt)

	out := make([]*Keystore, keys)
	for k := range out {
		idx := tbs.ShareIndex(k + 1)
		secrets, err := tbs.TieredSecretKeyShares(dealt, idx)
		require.NoError(t, err)
		out[k] = &Keystore{ShareIndex: idx, Secrets: secrets, PublicKeys: sets}
	}
	return out
}

func TestSealOpen(t *testing.T) {
	ks := newKeystores(t, 2, 3)[1]
	pass := []byte("correct horse battery staple")

	data, err := Seal(ks, pass, testParams, nil)
	require.NoError(t, err)
	require.NotContains(t, string(data), ks.Secrets.Values()[0].Scalar.String())

	back, err := Open(data, pass)
	require.NoError(t, err)
	require.Equal(t, ks.ShareIndex, back.ShareIndex)
	require.Equal(t, ks.Secrets.Tiers(), back.Secrets.Tiers())
	for k, sk := range ks.Secrets.Values() {
		require.True(t, sk.Equal(back.Secrets.Values()[k].Scalar))
	}

	h, err := ReadHeader(data)
	require.NoError(t, err)
	require.Equal(t, Version, h.Version)
	require.Equal(t, testParams, h.KDF)
	require.Equal(t, tbs.ShareIndex(2), h.ShareIndex)
	require.Equal(t, 3, h.PublicKeys.Len())
}

func TestOpenRejects(t *testing.T) {
	ks := newKeystores(t, 2, 3)[0]
	pass := []byte("passphrase")
	data, err := Seal(ks, pass, testParams, nil)
	require.NoError(t, err)

	t.Run("WrongPassphrase", func(t *testing.T) {
		_, err := Open(data, []byte("passphrasf"))
		require.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("TamperedHeader", func(t *testing.T) {
		var f file
		require.NoError(t, json.Unmarshal(data, &f))
		f.Header = bytes.Replace(f.Header, []byte(`"share_index":1`), []byte(`"share_index":2`), 1)
		tampered, err := json.Marshal(f)
		require.NoError(t, err)
		_, err = Open(tampered, pass)
		require.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("TamperedCiphertext", func(t *testing.T) {
		var f file
		require.NoError(t, json.Unmarshal(data, &f))
		f.Ciphertext[0] ^= 1
		tampered, err := json.Marshal(f)
		require.NoError(t, err)
		_, err = Open(tampered, pass)
		require.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("FutureVersion", func(t *testing.T) {
		var f file
		require.NoError(t, json.Unmarshal(data, &f))
		f.Header = bytes.Replace(f.Header, []byte(`"version":1`), []byte(`"version":2`), 1)
		future, err := json.Marshal(f)
		require.NoError(t, err)
		_, err = Open(future, pass)
		require.ErrorIs(t, err, ErrUnsupportedVersion)
		_, err = ReadHeader(future)
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := Open([]byte("not json"), pass)
		require.Error(t, err)
	})
}

func TestSealValidates(t *testing.T) {
	stores := newKeystores(t, 2, 3)

	// Guardian 1's secrets under guardian 2's index.
	mixed := &Keystore{ShareIndex: 2, Secrets: stores[0].Secrets, PublicKeys: stores[0].PublicKeys}
	_, err := Seal(mixed, []byte("p"), testParams, nil)
	require.Error(t, err)

	var missing tiered.Tiered[tbs.SecretKeyShare]
	missing.Insert(1, stores[0].Secrets.Values()[0])
	_, err = Seal(&Keystore{ShareIndex: 1, Secrets: missing, PublicKeys: stores[0].PublicKeys}, []byte("p"), testParams, nil)
	require.Error(t, err)

	unknown := &Keystore{ShareIndex: 9, Secrets: stores[0].Secrets, PublicKeys: stores[0].PublicKeys}
	_, err = Seal(unknown, []byte("p"), testParams, nil)
	require.ErrorIs(t, err, tbs.ErrUnknownShareIndex)
}

func TestSealRandomnessFailure(t *testing.T) {
	ks := newKeystores(t, 1, 1)[0]
	_, err := Seal(ks, []byte("p"), testParams, bytes.NewReader(make([]byte, 4)))
	require.ErrorIs(t, err, tbs.ErrRandomnessGeneration)
}

func TestStore(t *testing.T) {
	dir := t.TempDir() + "/keys"
	core, logs := observer.New(zapcore.InfoLevel)
	store := NewStore(dir, WithParams(testParams), WithLogger(zap.New(core)))

	stores := newKeystores(t, 2, 3)
	for k, ks := range stores {
		require.NoError(t, store.Save(ks, []byte{byte(k)}))
	}
	require.Equal(t, 3, logs.FilterMessage("saved keystore").Len())

	info, err := os.Stat(store.Path(2))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	ks, err := store.Load(2, []byte{1})
	require.NoError(t, err)
	require.Equal(t, tbs.ShareIndex(2), ks.ShareIndex)

	_, err = store.Load(2, []byte{0})
	require.ErrorIs(t, err, ErrDecrypt)
	require.Equal(t, 1, logs.FilterMessage("failed to open keystore").Len())

	_, err = store.Load(7, nil)
	require.ErrorIs(t, err, os.ErrNotExist)

	// A file copied under the wrong name is refused.
	data, err := os.ReadFile(store.Path(1))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(3), data, 0o600))
	_, err = store.Load(3, []byte{0})
	require.Error(t, err)

	// Saving again replaces the file.
	require.NoError(t, store.Save(stores[1], []byte("new")))
	_, err = store.Load(2, []byte("new"))
	require.NoError(t, err)
}
