// Package ers implements an encrypted range-searchable multi-map (ERS) over
// d-dimensional integer point data.
//
// A client holds a secret key, builds an encrypted index of a plaintext
// multi-map from points to sets of opaque byte payloads (see package emm and
// package scheme), and later issues hyper-rectangular range queries against
// a server that stores only opaque ciphertext labels and values. The hard
// engineering lives in the range-cover index layer: package divider supplies
// interchangeable splitting rules, package covertree and package
// rangetreeproduct build hierarchical decompositions of the domain from
// them, package hilbert supplies an optional 1-D projection, and package
// scheme composes all of the above into the ten concrete variants named
// in the specification this module implements.
package ers

import "errors"

// Sentinel errors returned by the data-model, cover-index, and EMM layers.
// Construction-time shape/dimension invariants panic instead of returning
// one of these (see each package's doc comments); these are reserved for
// errors that can only be detected once real data or a real query is in
// hand.
var (
	// ErrInvalidRange is returned when a HyperRange's start/end coordinates
	// are not componentwise ordered, or its start/end dimensions disagree.
	ErrInvalidRange = errors.New("ers: invalid range")

	// ErrDimensionMismatch is returned when a point or query's dimension
	// disagrees with the dimension a scheme or cover structure was built
	// for.
	ErrDimensionMismatch = errors.New("ers: dimension mismatch")

	// ErrIndexNotBuilt is returned by Trapdoor or Search when called before
	// BuildIndex.
	ErrIndexNotBuilt = errors.New("ers: index not built")

	// ErrQueryOutOfDomain is returned by Trapdoor when the query range is
	// not contained in the scheme's root domain.
	ErrQueryOutOfDomain = errors.New("ers: query out of domain")

	// ErrCorruptIndex is returned when two distinct (label, value-index)
	// pairs produce the same ciphertext label during Build. Resolve does
	// not return it: Resolve receives no labels, and it reports every
	// malformed or unverifiable ciphertext value as ErrTampering.
	ErrCorruptIndex = errors.New("ers: corrupt index")

	// ErrTampering is returned by Resolve when AEAD verification fails for
	// a returned ciphertext value.
	ErrTampering = errors.New("ers: tampering detected")

	// ErrNonterminatingDivider is returned when a Divider returns a child
	// range equal to its parent, which would make cover-tree construction
	// loop forever.
	ErrNonterminatingDivider = errors.New("ers: nonterminating divider")
)
