package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeContentHash returns the hex sha256 of a module's source. Saved runs
// compare it against the file on disk to detect stale findings.
func ComputeContentHash(src []byte) string {
	h := sha256.New()
	h.Write(src)
	return fmt.Sprintf("%x", h.Sum(nil))
}
