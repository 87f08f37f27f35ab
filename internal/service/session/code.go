package session

import (
	"fmt"
	"math/rand"
)

// CodeFunc produces a fresh order code for a new session.
type CodeFunc func() string

// NewCode returns a short human-facing order code like "#sk-00042". The
// fixed "#sk-" marker keeps the completion check from matching incidental
// digits in a reply. Codes may collide across customers; the store key is
// the identity, not the code.
func NewCode() string {
	return fmt.Sprintf("#sk-%05d", rand.Intn(100000))
}
