package kdf_test

import (
	"bytes"
	"testing"

	"github.com/rosualinpetru/ers-go/crypto/kdf"
)

func TestHMACAndEncryptionKeysAreDistinct(t *testing.T) {
	key := []byte("master key material")
	hk := kdf.HMACKey(key)
	ek := kdf.EncryptionKey(key)

	if bytes.Equal(hk, ek) {
		t.Fatal("hk and ek must not collide")
	}
	if len(hk) != kdf.Size || len(ek) != kdf.Size {
		t.Fatalf("unexpected subkey length: hk=%d ek=%d, want %d", len(hk), len(ek), kdf.Size)
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	key := []byte("master key material")
	a := kdf.Derive(key, "hmac")
	b := kdf.Derive(key, "hmac")
	if !bytes.Equal(a, b) {
		t.Fatal("Derive must be deterministic for the same key and tag")
	}
}

func TestDeriveVariesWithKey(t *testing.T) {
	a := kdf.Derive([]byte("key one"), "hmac")
	b := kdf.Derive([]byte("key two"), "hmac")
	if bytes.Equal(a, b) {
		t.Fatal("different master keys must not derive the same subkey")
	}
}
