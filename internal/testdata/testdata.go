// Package testdata provides a deterministic random bit generator for testing.
package testdata

import (
	"crypto/sha3"
	"encoding/binary"
)

// DRBG is a deterministic random bit generator based on SHAKE128.
type DRBG struct {
	h *sha3.SHAKE
}

// New returns a new DRBG instance initialized with the given customization string.
func New(customization string) *DRBG {
	h := sha3.NewSHAKE128()
	_, _ = h.Write([]byte(customization))
	return &DRBG{h}
}

// Data returns n bytes of deterministic data from the DRBG.
func (d *DRBG) Data(n int) []byte {
	b := make([]byte, n)
	_, _ = d.h.Read(b)
	return b
}

// Uint64n returns a deterministic value in [0, n) from the DRBG. Used to synthesize reproducible point
// coordinates and query ranges in tests without pulling in crypto/rand.
func (d *DRBG) Uint64n(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return binary.BigEndian.Uint64(d.Data(8)) % n
}
