// Package scoring derives effectiveness scores for generated strategies.
package scoring

import (
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// Score bounds. Every score falls in [MinScore, MaxScore].
const (
	MinScore = 70
	MaxScore = 95
)

// Score computes the effectiveness score for content as of the given moment.
// Formula: SHA256(content + UTC calendar day), first 4 bytes read as a
// big-endian uint32, mapped to 70 + (v mod 26).
//
// The same (content, day) pair always yields the same score, across restarts
// and implementations. This is deliberately not random: re-submitting
// identical content within a day cannot re-roll the score. Crossing UTC
// midnight changes the result for otherwise identical content.
func Score(content string, asOf time.Time) int {
	seed := content + asOf.UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(seed))
	v := binary.BigEndian.Uint32(sum[:4])
	return MinScore + int(v%(MaxScore-MinScore+1))
}
