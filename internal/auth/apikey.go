package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	apiKeyPrefix    = "pwx_"
	apiKeyBytes     = 32
	displayPrefixSz = 8
)

// GenerateAPIKey returns a new raw key, its lookup hash and display prefix.
func GenerateAPIKey() (raw, hash, prefix string, err error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("generate api key: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(buf)
	raw = apiKeyPrefix + encoded
	return raw, HashAPIKey(raw), encoded[:displayPrefixSz], nil
}

// HashAPIKey returns the hex sha256 of a raw key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
