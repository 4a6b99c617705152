package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// newTabID builds a creation-time-prefixed id with a random suffix, unique
// for the process lifetime and collision-resistant across restarts.
func newTabID(now time.Time) string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("%d-unknown", now.UnixMilli())
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), hex.EncodeToString(buf[:]))
}
