package backup

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

func newRequest(t *testing.T, priv *btcec.PrivateKey) BackupRequest {
	t.Helper()
	return BackupRequest{
		ID:        IDFromPrivateKey(priv),
		Payload:   []byte("encrypted notes"),
		Timestamp: time.Unix(1700000000, 123456789),
	}
}

func TestSignVerify(t *testing.T) {
	priv := newKey(t)
	req := newRequest(t, priv)

	signed, err := req.Sign(priv)
	require.NoError(t, err)
	got, err := signed.VerifyValid()
	require.NoError(t, err)
	require.Equal(t, req.Payload, got.Payload)
	require.Equal(t, req.ID, got.ID)
}

func TestVerifyRejectsTampering(t *testing.T) {
	priv := newKey(t)

	tests := map[string]func(*SignedBackupRequest){
		"Payload":   func(s *SignedBackupRequest) { s.Request.Payload = []byte("other notes") },
		"Timestamp": func(s *SignedBackupRequest) { s.Request.Timestamp = s.Request.Timestamp.Add(time.Nanosecond) },
		"ID":        func(s *SignedBackupRequest) { s.Request.ID = IDFromPrivateKey(newKey(t)) },
		"Signature": func(s *SignedBackupRequest) {
			other := s.Request
			other.Payload = nil
			swapped, err := other.Sign(priv)
			require.NoError(t, err)
			s.Signature = swapped.Signature
		},
	}
	for name, tamper := range tests {
		t.Run(name, func(t *testing.T) {
			signed, err := newRequest(t, priv).Sign(priv)
			require.NoError(t, err)
			tamper(signed)
			_, err = signed.VerifyValid()
			require.ErrorIs(t, err, ErrInvalidSignature)
		})
	}

	t.Run("MissingSignature", func(t *testing.T) {
		signed := &SignedBackupRequest{Request: newRequest(t, priv)}
		_, err := signed.VerifyValid()
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestSignRejects(t *testing.T) {
	priv := newKey(t)
	req := newRequest(t, priv)

	_, err := req.Sign(newKey(t))
	require.ErrorIs(t, err, ErrKeyMismatch)

	req.Payload = bytes.Repeat([]byte{1}, MaxPayloadSize+1)
	_, err = req.Sign(priv)
	require.ErrorIs(t, err, ErrPayloadTooLarge)

	req.Payload = req.Payload[:MaxPayloadSize]
	signed, err := req.Sign(priv)
	require.NoError(t, err)
	signed.Request.Payload = append(signed.Request.Payload, 0)
	_, err = signed.VerifyValid()
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestEncodeIsTimezoneIndependent(t *testing.T) {
	req := newRequest(t, newKey(t))
	local := req
	local.Timestamp = req.Timestamp.In(time.FixedZone("UTC+5", 5*3600))
	require.Equal(t, req.Encode(), local.Encode())
	require.Equal(t, req.Hash(), local.Hash())

	enc := req.Encode()
	require.Len(t, enc, 32+1+len(req.Payload)+8+4)
	require.Equal(t, req.ID[:], enc[:32])
}

func TestJSON(t *testing.T) {
	priv := newKey(t)
	signed, err := newRequest(t, priv).Sign(priv)
	require.NoError(t, err)

	data, err := json.Marshal(signed)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Equal(t, signed.Request.ID.String(), fields["id"])
	require.Equal(t, "656e63727970746564206e6f746573", fields["payload"])
	require.Len(t, fields["signature"], 128)

	var back SignedBackupRequest
	require.NoError(t, json.Unmarshal(data, &back))
	req, err := back.VerifyValid()
	require.NoError(t, err)
	require.Equal(t, signed.Request.Payload, req.Payload)

	var id ID
	require.Error(t, id.UnmarshalText([]byte("zz")))
	require.Error(t, id.UnmarshalText(bytes.Repeat([]byte("ff"), 32)))
	require.Error(t, json.Unmarshal([]byte(`{"id":"`+signed.Request.ID.String()+`","payload":"","timestamp":"2024-01-01T00:00:00Z","signature":"00"}`), &back))
}
