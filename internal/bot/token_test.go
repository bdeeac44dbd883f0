package bot

import (
	"strings"
	"testing"
)

func TestNewListingID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, err := NewListingID()
		if err != nil {
			t.Fatalf("NewListingID: %v", err)
		}
		if len(id) != listingIDLength {
			t.Fatalf("id %q length = %d, want %d", id, len(id), listingIDLength)
		}
		for _, r := range id {
			if !strings.ContainsRune(listingIDAlphabet, r) {
				t.Fatalf("id %q contains %q outside the alphabet", id, r)
			}
		}
		if seen[id] {
			t.Fatalf("id %q generated twice", id)
		}
		seen[id] = true
	}
}
