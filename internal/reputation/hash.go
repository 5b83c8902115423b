package reputation

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashText returns the hex SHA3-256 digest of extracted page text.
// The digest identifies the exact content a score was computed for, so
// history rows for the same URL can be told apart when the page changed
// between scans.
func HashText(text string) string {
	sum := sha3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
