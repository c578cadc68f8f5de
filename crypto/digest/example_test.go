package digest_test

import (
	"fmt"
	"io"

	"github.com/rosualinpetru/ers-go/crypto/digest"
)

func Example_unkeyed() {
	h := digest.New("com.example.digest")
	_, _ = io.WriteString(h, "hello")
	_, _ = io.WriteString(h, " world")

	sum := h.Sum(nil)
	fmt.Printf("%x\n", sum)

	// Output:
	// 0b5f3dd8b4493e36715af997b3e6e4eab1bd9abdac4369b9e980bcea4d526382
}

func Example_keyed() {
	h := digest.NewKeyed("com.example.mac", []byte("a secret key"))
	_, _ = io.WriteString(h, "hello")
	_, _ = io.WriteString(h, " world")

	sum := h.Sum(nil)
	fmt.Printf("%x\n", sum)

	// Output:
	// 5b4d91cae39e7b4a5ab72885041b4804
}
