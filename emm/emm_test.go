package emm_test

import (
	"bytes"
	"errors"
	"testing"

	ers "github.com/rosualinpetru/ers-go"
	"github.com/rosualinpetru/ers-go/emm"
)

func TestSetupReturnsRequestedLength(t *testing.T) {
	key, err := emm.Setup(32)
	if err != nil {
		t.Fatal(err)
	}
	if len(key) != 32 {
		t.Fatalf("len(key) = %d, want 32", len(key))
	}
}

func TestBuildSearchResolveRoundTrip(t *testing.T) {
	key, err := emm.Setup(32)
	if err != nil {
		t.Fatal(err)
	}

	plaintext := map[string][][]byte{
		"label-a": {[]byte("value a0"), []byte("value a1")},
		"label-b": {[]byte("value b0")},
	}

	db, err := emm.Build(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	token := emm.Trapdoor(key, []byte("label-a"))
	ciphertexts := emm.Search(token, db)
	if len(ciphertexts) != 2 {
		t.Fatalf("got %d ciphertexts, want 2", len(ciphertexts))
	}

	plaintexts, err := emm.Resolve(key, ciphertexts)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{"value a0": true, "value a1": true}
	for _, pt := range plaintexts {
		if !want[string(pt)] {
			t.Errorf("unexpected resolved value %q", pt)
		}
	}
}

func TestSearchOnMissingLabelReturnsEmpty(t *testing.T) {
	key, err := emm.Setup(32)
	if err != nil {
		t.Fatal(err)
	}
	db, err := emm.Build(key, map[string][][]byte{"a": {[]byte("x")}})
	if err != nil {
		t.Fatal(err)
	}

	token := emm.Trapdoor(key, []byte("nonexistent"))
	got := emm.Search(token, db)
	if len(got) != 0 {
		t.Errorf("Search on missing label = %v, want empty", got)
	}
}

func TestTrapdoorMatchesBuildTimeToken(t *testing.T) {
	key, err := emm.Setup(32)
	if err != nil {
		t.Fatal(err)
	}
	a := emm.Trapdoor(key, []byte("same-label"))
	b := emm.Trapdoor(key, []byte("same-label"))
	if !bytes.Equal(a, b) {
		t.Fatal("Trapdoor must be deterministic for the same key and label")
	}
}

func TestResolveTamperingFails(t *testing.T) {
	key, err := emm.Setup(32)
	if err != nil {
		t.Fatal(err)
	}
	db, err := emm.Build(key, map[string][][]byte{"a": {[]byte("value")}})
	if err != nil {
		t.Fatal(err)
	}

	token := emm.Trapdoor(key, []byte("a"))
	ciphertexts := emm.Search(token, db)
	tampered := append([]byte{}, ciphertexts[0]...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = emm.Resolve(key, [][]byte{tampered})
	if !errors.Is(err, ers.ErrTampering) {
		t.Fatalf("err = %v, want ErrTampering", err)
	}
}

func TestResolveRejectsShortCiphertext(t *testing.T) {
	key, err := emm.Setup(32)
	if err != nil {
		t.Fatal(err)
	}
	_, err = emm.Resolve(key, [][]byte{{1, 2, 3}})
	if !errors.Is(err, ers.ErrTampering) {
		t.Fatalf("err = %v, want ErrTampering", err)
	}
}

func TestDifferentLabelsYieldDifferentTokens(t *testing.T) {
	key, err := emm.Setup(32)
	if err != nil {
		t.Fatal(err)
	}
	a := emm.Trapdoor(key, []byte("label-a"))
	b := emm.Trapdoor(key, []byte("label-b"))
	if bytes.Equal(a, b) {
		t.Fatal("distinct labels must not share a trapdoor token")
	}
}
