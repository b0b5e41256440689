package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletbridge/link-server-go/internal/util"
)

const testSecret = "test-secret-for-connection-tokens"

func TestIssueAndVerify(t *testing.T) {
	codec := NewCodec(testSecret)
	expiresAt := time.Now().Add(5 * time.Minute)

	tok, err := codec.Issue("conn-1", 42, 99, expiresAt)
	require.NoError(t, err)
	assert.Contains(t, tok, ".")

	claims := codec.Verify(tok, "conn-1", 42, 99)
	require.NotNil(t, claims)
	assert.Equal(t, "conn-1", claims.ConnectionID)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, int64(99), claims.ChatID)
	assert.Equal(t, expiresAt.Unix(), claims.Exp)
}

func TestVerifyRejectsMutatedTriple(t *testing.T) {
	codec := NewCodec(testSecret)
	expiresAt := time.Now().Add(5 * time.Minute)

	tok, err := codec.Issue("conn-1", 42, 99, expiresAt)
	require.NoError(t, err)

	t.Run("wrong connection id", func(t *testing.T) {
		assert.Nil(t, codec.Verify(tok, "conn-2", 42, 99))
	})

	t.Run("wrong user id", func(t *testing.T) {
		assert.Nil(t, codec.Verify(tok, "conn-1", 43, 99))
	})

	t.Run("wrong chat id", func(t *testing.T) {
		assert.Nil(t, codec.Verify(tok, "conn-1", 42, 100))
	})
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Now()
	codec := NewCodec(testSecret)

	tok, err := codec.Issue("conn-1", 42, 99, now.Add(time.Minute))
	require.NoError(t, err)

	codec.WithNow(func() time.Time { return now.Add(2 * time.Minute) })
	assert.Nil(t, codec.Verify(tok, "conn-1", 42, 99))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	codec := NewCodec(testSecret)

	tok, err := codec.Issue("conn-1", 42, 99, time.Now().Add(time.Minute))
	require.NoError(t, err)

	parts := strings.SplitN(tok, ".", 2)
	require.Len(t, parts, 2)

	flipped := byte('A')
	if parts[1][0] == 'A' {
		flipped = 'B'
	}
	tampered := parts[0] + "." + string(flipped) + parts[1][1:]
	assert.Nil(t, codec.Verify(tampered, "conn-1", 42, 99))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewCodec(testSecret)
	verifier := NewCodec("a-completely-different-secret")

	tok, err := issuer.Issue("conn-1", 42, 99, time.Now().Add(time.Minute))
	require.NoError(t, err)

	assert.Nil(t, verifier.Verify(tok, "conn-1", 42, 99))
}

func TestVerifyRejectsMalformed(t *testing.T) {
	codec := NewCodec(testSecret)

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no delimiter", "eyJjb25uZWN0aW9uSWQiOiJ4In0"},
		{"empty payload", ".c2ln"},
		{"empty signature", "eyJjb25uZWN0aW9uSWQiOiJ4In0."},
		{"invalid base64 signature", "eyJjb25uZWN0aW9uSWQiOiJ4In0.!!!!"},
		{"garbage", "not a token at all"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, codec.Verify(tc.token, "conn-1", 42, 99))
		})
	}
}

func TestVerifyRejectsNonJSONPayload(t *testing.T) {
	codec := NewCodec(testSecret)

	// Correctly signed token whose payload is not JSON.
	encoded := base64.RawURLEncoding.EncodeToString([]byte("not-json"))
	sig := base64.RawURLEncoding.EncodeToString(util.HmacSHA256(testSecret, []byte(encoded)))
	forged := encoded + "." + sig

	assert.Nil(t, codec.Verify(forged, "x", 1, 1))
}
