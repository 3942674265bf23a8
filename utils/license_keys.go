package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Keys are five dash-separated blocks of five characters from an unambiguous
// uppercase alphabet (no 0/O, 1/I). Always generated server-side from
// crypto/rand; never derived from shop data, so keys cannot be guessed from
// a shop name or a sequential id.
const (
	keyAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	keyBlockCount = 5
	keyBlockSize  = 5
)

// GenerateLicenseKey produces a new random license key, e.g.
// "F7Q2M-XK9PD-3RTWH-BN5GA-ZC8VY".
func GenerateLicenseKey() (string, error) {
	raw := make([]byte, keyBlockCount*keyBlockSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to obtain random bytes: %w", err)
	}

	blocks := make([]string, keyBlockCount)
	for b := 0; b < keyBlockCount; b++ {
		var sb strings.Builder
		for i := 0; i < keyBlockSize; i++ {
			sb.WriteByte(keyAlphabet[int(raw[b*keyBlockSize+i])%len(keyAlphabet)])
		}
		blocks[b] = sb.String()
	}
	return strings.Join(blocks, "-"), nil
}

// NormalizeLicenseKey canonicalizes user-typed input: uppercase, trimmed,
// stray spaces removed. Dashes are kept since stored keys contain them.
func NormalizeLicenseKey(key string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(key))
	return strings.ReplaceAll(cleaned, " ", "")
}
