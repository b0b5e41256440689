package challenge

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderIsDeterministic(t *testing.T) {
	expiresAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	a := Render("conn-1", 42, 99, expiresAt)
	b := Render("conn-1", 42, 99, expiresAt)

	assert.Equal(t, a, b)
}

func TestRenderContent(t *testing.T) {
	expiresAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	msg := Render("conn-1", 42, 99, expiresAt)
	lines := strings.Split(msg, "\n")

	assert.Equal(t, "WalletBridge Connection Request", lines[0])
	assert.Contains(t, msg, "Connection ID: conn-1")
	assert.Contains(t, msg, "User ID: 42")
	assert.Contains(t, msg, "Chat ID: 99")
	assert.Contains(t, msg, "Expires At: 2026-08-01T12:00:00Z")
	assert.Equal(t, "Sign this message to verify wallet ownership.", lines[len(lines)-1])
}

func TestRenderBindsEveryField(t *testing.T) {
	expiresAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	base := Render("conn-1", 42, 99, expiresAt)

	assert.NotEqual(t, base, Render("conn-2", 42, 99, expiresAt))
	assert.NotEqual(t, base, Render("conn-1", 43, 99, expiresAt))
	assert.NotEqual(t, base, Render("conn-1", 42, 100, expiresAt))
	assert.NotEqual(t, base, Render("conn-1", 42, 99, expiresAt.Add(time.Second)))
}

func TestRenderNormalizesTimezone(t *testing.T) {
	utc := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	offset := utc.In(time.FixedZone("KST", 9*3600))

	assert.Equal(t, Render("conn-1", 42, 99, utc), Render("conn-1", 42, 99, offset))
}
