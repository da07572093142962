// Package id produces the opaque run identifier that ties one scouting
// run's log lines together.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

// NewRunID returns a short random hex token. Randomness failure falls back
// to a fixed token rather than aborting the run.
func NewRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "run-unknown"
	}
	return hex.EncodeToString(buf)
}
