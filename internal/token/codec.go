// Package token implements the signed, expiring connection token that binds a
// handshake to a specific user/chat pair. The token is self-verifying: its
// authenticity rests on a keyed HMAC recomputed at verification time, not on
// any store lookup.
package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/walletbridge/link-server-go/internal/util"
)

const delimiter = "."

// Claims are the fields bound into a connection token.
type Claims struct {
	ConnectionID string `json:"connectionId"`
	UserID       int64  `json:"userId"`
	ChatID       int64  `json:"chatId"`
	Exp          int64  `json:"exp"`
}

// ExpiresAt returns the embedded expiry as a time.
func (c *Claims) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0)
}

// Codec issues and verifies connection tokens. The zero value is unusable;
// construct with NewCodec.
type Codec struct {
	secret string
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: secret, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (c *Codec) WithNow(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issue builds a token of the form
// base64url(JSON claims) + "." + base64url(HMAC-SHA256(secret, encodedClaims)).
func (c *Codec) Issue(connectionID string, userID, chatID int64, expiresAt time.Time) (string, error) {
	claims := Claims{
		ConnectionID: connectionID,
		UserID:       userID,
		ChatID:       chatID,
		Exp:          expiresAt.Unix(),
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	sig := util.HmacSHA256(c.secret, []byte(encoded))

	return encoded + delimiter + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Verify checks a token against the expected {connectionId, userId, chatId}
// triple. It returns the embedded claims on success and nil on any failure:
// malformed encoding, signature mismatch, passed expiry, or triple mismatch.
// All failures are uniform; callers learn only that the token is invalid.
func (c *Codec) Verify(tok, connectionID string, userID, chatID int64) *Claims {
	encoded, encodedSig, found := strings.Cut(tok, delimiter)
	if !found || encoded == "" || encodedSig == "" {
		return nil
	}

	sig, err := base64.RawURLEncoding.DecodeString(encodedSig)
	if err != nil {
		return nil
	}

	expected := util.HmacSHA256(c.secret, []byte(encoded))
	if !util.ConstantTimeEqual(expected, sig) {
		return nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}

	if c.now().Unix() >= claims.Exp {
		return nil
	}

	if claims.ConnectionID != connectionID || claims.UserID != userID || claims.ChatID != chatID {
		return nil
	}

	return &claims
}
