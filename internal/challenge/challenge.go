// Package challenge renders the deterministic message a wallet must sign to
// prove key possession. The same rendering runs at issuance and at callback
// verification, so the text is never stored and a signature obtained under one
// handshake cannot be replayed against another.
package challenge

import (
	"strconv"
	"strings"
	"time"
)

const (
	banner      = "WalletBridge Connection Request"
	instruction = "Sign this message to verify wallet ownership."
)

// Render produces the challenge text for a handshake. Every bound field gets
// its own labelled line; expiresAt is rendered as ISO-8601 in UTC. Any change
// to a bound field changes the text and invalidates prior signatures.
func Render(connectionID string, userID, chatID int64, expiresAt time.Time) string {
	lines := []string{
		banner,
		"",
		"Connection ID: " + connectionID,
		"User ID: " + strconv.FormatInt(userID, 10),
		"Chat ID: " + strconv.FormatInt(chatID, 10),
		"Expires At: " + expiresAt.UTC().Format(time.RFC3339),
		"",
		instruction,
	}
	return strings.Join(lines, "\n")
}
