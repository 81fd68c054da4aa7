// Package dedup derives deterministic insert-deduplication tokens.
//
// The storage engine drops a batch whose token it has already seen on the
// same table, which makes re-submitting a batch after a crash harmless. The
// token is a pure function of the job identity (asset plus millisecond
// range) and the batch number, so a resumed run reproduces the exact token
// of the batch it is replaying.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TokenLength is the number of hex characters retained from the digest.
const TokenLength = 32

// Token returns the deduplication token for one insert batch.
func Token(asset string, rangeStartMS, rangeEndMS, batchNumber int64) string {
	seed := fmt.Sprintf("%s|%d|%d|%d", asset, rangeStartMS, rangeEndMS, batchNumber)
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:TokenLength]
}
