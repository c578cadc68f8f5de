// Package emm implements the encrypted multi-map engine: Setup, Build,
// Trapdoor, Search, and Resolve, per §4.6. The engine is a pure algorithm
// holder — it owns no state beyond what each call receives — built on
// crypto/kdf for subkey derivation and crypto/aead for value encryption,
// plus the two wire-frozen primitives named in §6 (HMAC-SHA256 tokens,
// SHA-256 ciphertext labels), taken directly from the standard library
// since the spec pins their exact algorithm names as part of the frozen
// label/token wire format shared between Build and Trapdoor.
package emm

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/rosualinpetru/ers-go"
	"github.com/rosualinpetru/ers-go/crypto/aead"
	"github.com/rosualinpetru/ers-go/crypto/kdf"
)

// nonceSize is the random nonce length prepended to every ciphertext
// value. 24 bytes gives comfortable collision margin under random
// generation across the lifetime of a single encrypted index.
const nonceSize = 24

const aeadDomain = "ers/emm/value"

// Label is a fixed-width ciphertext label: a server-visible EncryptedDB
// key, carrying no information about the plaintext label or value index it
// was derived from.
type Label [sha256.Size]byte

// EncryptedDB is the server-visible encrypted multi-map: opaque ciphertext
// labels to opaque ciphertext values. Built once by Build; read-only
// thereafter.
type EncryptedDB map[Label][]byte

// Setup returns n fresh random bytes as a master key.
func Setup(n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("emm: generating master key: %w", err)
	}
	return key, nil
}

// Build encrypts plaintext — a map from raw label bytes to an ordered list
// of value byte strings — into an EncryptedDB. For each (label, values):
// hk = KDF(key,"hmac"), ek = KDF(key,"encryption"), token =
// HMAC-SHA256(hk, label); for each value at position i the ciphertext
// label is SHA-256(token || LE64(i)), i as 8 little-endian bytes, and the
// ciphertext value is
// AEAD_Encrypt(ek, value) under a freshly drawn random nonce, bundled as
// nonce||ciphertext||tag. A ciphertext label collision — which should only
// happen if the same (label, i) pair is submitted twice — aborts with
// ers.ErrCorruptIndex rather than silently overwriting an entry.
func Build(key []byte, plaintext map[string][][]byte) (EncryptedDB, error) {
	hk := kdf.HMACKey(key)
	ek := kdf.EncryptionKey(key)
	a := aead.New(aeadDomain, ek, nonceSize)

	db := make(EncryptedDB)
	for label, values := range plaintext {
		token := hmacToken(hk, []byte(label))
		for i, value := range values {
			l := ciphertextLabel(token, uint64(i))
			if _, exists := db[l]; exists {
				return nil, fmt.Errorf("emm: ciphertext label collision for label %q, index %d: %w", label, i, ers.ErrCorruptIndex)
			}

			nonce := make([]byte, nonceSize)
			if _, err := rand.Read(nonce); err != nil {
				return nil, fmt.Errorf("emm: generating nonce: %w", err)
			}
			db[l] = a.Seal(nonce, nonce, value, nil)
		}
	}
	return db, nil
}

// Trapdoor returns HMAC-SHA256(KDF(key,"hmac"), label): deterministic
// given key and label, identical to the token Build derives internally for
// the same label.
func Trapdoor(key, label []byte) []byte {
	return hmacToken(kdf.HMACKey(key), label)
}

// Search probes SHA-256(token || LE64(i)) for i = 0, 1, 2, ... against db
// until a label is absent, and returns every ciphertext value found along
// the way (nonce-prefixed, as Build left them — callers pass them straight
// to Resolve).
func Search(token []byte, db EncryptedDB) [][]byte {
	var out [][]byte
	for i := uint64(0); ; i++ {
		l := ciphertextLabel(token, i)
		v, ok := db[l]
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// Resolve decrypts every ciphertext value in ciphertexts under key's
// derived encryption subkey. Any AEAD failure — including a ciphertext
// shorter than a nonce — is fatal: it returns ers.ErrTampering, since a
// server-held ciphertext was either corrupted in storage or actively
// tampered with.
func Resolve(key []byte, ciphertexts [][]byte) ([][]byte, error) {
	ek := kdf.EncryptionKey(key)
	a := aead.New(aeadDomain, ek, nonceSize)

	out := make([][]byte, 0, len(ciphertexts))
	for _, ct := range ciphertexts {
		if len(ct) < nonceSize {
			return nil, fmt.Errorf("emm: ciphertext shorter than nonce: %w", ers.ErrTampering)
		}
		nonce, sealed := ct[:nonceSize], ct[nonceSize:]
		pt, err := a.Open(nil, nonce, sealed, nil)
		if err != nil {
			return nil, fmt.Errorf("emm: decrypting value: %w", ers.ErrTampering)
		}
		out = append(out, pt)
	}
	return out, nil
}

func hmacToken(hk, label []byte) []byte {
	mac := hmac.New(sha256.New, hk)
	mac.Write(label)
	return mac.Sum(nil)
}

func ciphertextLabel(token []byte, i uint64) Label {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], i)

	h := sha256.New()
	h.Write(token)
	h.Write(idx[:])

	var l Label
	copy(l[:], h.Sum(nil))
	return l
}
