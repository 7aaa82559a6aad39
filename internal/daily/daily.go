// Package daily derives the shared "board of the day" seed.
//
// Every player who starts a daily session on the same UTC date gets the same
// grid: the grid RNG is seeded from HMAC-SHA256(salt, YYYY-MM-DD).
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns a deterministic RNG seed for the date.
func Seed(date time.Time, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes are plenty of entropy for a PCG seed
	return binary.BigEndian.Uint64(sum[:8])
}
