package sigverify

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeypair(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub), priv
}

func TestVerifyAcceptsEveryEncoding(t *testing.T) {
	address, priv := newKeypair(t)
	msg := "WalletBridge Connection Request\n\nSign this message to verify wallet ownership."
	sig := ed25519.Sign(priv, []byte(msg))

	encodings := map[string]string{
		"base64": base64.StdEncoding.EncodeToString(sig),
		"base58": base58.Encode(sig),
		"hex":    hex.EncodeToString(sig),
	}

	for name, encoded := range encodings {
		t.Run(name, func(t *testing.T) {
			assert.True(t, Verify(address, encoded, msg))
		})
	}
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	address, priv := newKeypair(t)
	sig := ed25519.Sign(priv, []byte("message one"))

	assert.True(t, Verify(address, base64.StdEncoding.EncodeToString(sig), "message one"))
	assert.False(t, Verify(address, base64.StdEncoding.EncodeToString(sig), "message two"))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, priv := newKeypair(t)
	otherAddress, _ := newKeypair(t)

	msg := "challenge text"
	sig := ed25519.Sign(priv, []byte(msg))

	assert.False(t, Verify(otherAddress, base64.StdEncoding.EncodeToString(sig), msg))
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestDecodeSignatureRejectsWrongLength(t *testing.T) {
	cases := []struct {
		name      string
		signature string
	}{
		{"empty", ""},
		{"short base64", base64.StdEncoding.EncodeToString(bytesOf(0xff, 32))},
		{"long base64", base64.StdEncoding.EncodeToString(bytesOf(0xff, 96))},
		{"short hex", hex.EncodeToString(make([]byte, 63))},
		{"short base58", base58.Encode(make([]byte, 10))},
		{"garbage", "!!!not any encoding!!!"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, DecodeSignature(tc.signature))
		})
	}
}

func TestDecodeSignatureAccepts64Bytes(t *testing.T) {
	sig := make([]byte, ed25519.SignatureSize)
	for i := range sig {
		sig[i] = byte(i)
	}

	assert.Equal(t, sig, DecodeSignature(base64.StdEncoding.EncodeToString(sig)))
	assert.Equal(t, sig, DecodeSignature(base58.Encode(sig)))
	assert.Equal(t, sig, DecodeSignature(hex.EncodeToString(sig)))
}

func TestDecodeAddress(t *testing.T) {
	address, _ := newKeypair(t)

	t.Run("valid", func(t *testing.T) {
		pub := DecodeAddress(address)
		require.NotNil(t, pub)
		assert.Len(t, []byte(pub), ed25519.PublicKeySize)
	})

	t.Run("wrong length", func(t *testing.T) {
		assert.Nil(t, DecodeAddress(base58.Encode(make([]byte, 20))))
	})

	t.Run("not base58", func(t *testing.T) {
		assert.Nil(t, DecodeAddress("0x0123456789abcdef"))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, DecodeAddress(""))
	})
}

func TestVerifyMalformedInputsFailClosed(t *testing.T) {
	address, priv := newKeypair(t)
	msg := "challenge"
	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, []byte(msg)))

	assert.False(t, Verify("bad-address", sig, msg))
	assert.False(t, Verify(address, "bad-signature", msg))
	assert.False(t, Verify("", "", ""))
}
