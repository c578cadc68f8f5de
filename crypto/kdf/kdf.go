// Package kdf derives the two domain-separated subkeys (the EMM's HMAC
// key and its AEAD encryption key) from a single master key, built on top
// of the transcript protocol engine.
package kdf

import "github.com/rosualinpetru/ers-go/crypto/protocol"

// Size is the length, in bytes, of each derived subkey.
const Size = 32

const domain = "ers/kdf"

// Derive returns the subkey for the given tag, deterministically derived
// from key. Distinct tags always yield independent subkeys, even when the
// master key is the same.
func Derive(key []byte, tag string) []byte {
	p := protocol.New(domain)
	p.Mix("key", key)
	return p.Derive(tag, nil, Size)
}

// HMACKey returns the EMM's HMAC subkey ("hmac"), used for trapdoor
// tokens and build-time labels.
func HMACKey(key []byte) []byte {
	return Derive(key, "hmac")
}

// EncryptionKey returns the EMM's AEAD subkey ("encryption"), used to
// encrypt and decrypt ciphertext values.
func EncryptionKey(key []byte) []byte {
	return Derive(key, "encryption")
}
