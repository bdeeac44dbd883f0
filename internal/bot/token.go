package bot

import (
	"crypto/rand"
	"fmt"
)

const (
	listingIDLength   = 12
	listingIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewListingID generates the public, URL-safe id buyers use with /buy.
func NewListingID() (string, error) {
	buf := make([]byte, listingIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = listingIDAlphabet[int(b)%len(listingIDAlphabet)]
	}
	return string(buf), nil
}
