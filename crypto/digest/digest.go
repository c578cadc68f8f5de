// Package digest provides a domain-separated message digest (hash) built on top of the transcript protocol
// engine. The range-cover tree uses it to key its per-node descend/cover memoization cache.
package digest

import (
	"hash"

	"github.com/rosualinpetru/ers-go/crypto/hazmat/kt128"
	"github.com/rosualinpetru/ers-go/crypto/protocol"
)

const (
	// UnkeyedSize is the size, in bytes, of the unkeyed hash's digest.
	UnkeyedSize = 32

	// KeyedSize is the size, in bytes, of the keyed hash's digest.
	KeyedSize = 16
)

// New returns a new hash.Hash instance which uses the given domain string.
func New(domain string) hash.Hash {
	base := protocol.New(domain)
	d := &digest{
		base: base,
		size: UnkeyedSize,
	}
	d.Reset()
	return d
}

// NewKeyed returns a new hash.Hash instance which uses the given domain string and the given key.
func NewKeyed(domain string, key []byte) hash.Hash {
	base := protocol.New(domain)
	base.Mix("key", key)
	d := &digest{
		base: base,
		size: KeyedSize,
	}
	d.Reset()
	return d
}

type digest struct {
	base, p *protocol.Protocol
	w       *protocol.MixWriter
	size    int
}

func (d *digest) Write(p []byte) (n int, err error) {
	return d.w.Write(p)
}

func (d *digest) Sum(b []byte) []byte {
	p := d.w.Branch()
	var label string
	if d.size == KeyedSize {
		label = "tag"
	} else {
		label = "digest"
	}
	return p.Derive(label, b, d.size)
}

func (d *digest) Reset() {
	d.p = d.base.Clone()
	d.w = d.p.MixWriter("message")
}

func (d *digest) Size() int {
	return d.size
}

func (d *digest) BlockSize() int {
	return kt128.BlockSize // chunk size of the KT128 hasher behind MixWriter
}

var _ hash.Hash = (*digest)(nil)
