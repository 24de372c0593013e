package hasher

import (
	"encoding/hex"
	"fmt"

	"groot/internal/errors"

	"github.com/multiformats/go-multihash"
	"github.com/zeebo/xxh3"
)

// Digest is the lowercase hex name of an object.
type Digest string

func (d Digest) String() string { return string(d) }

// Short is the abbreviated form used in log output.
func (d Digest) Short() string {
	if len(d) > 8 {
		return string(d[:8])
	}
	return string(d)
}

const (
	SHA1   = "sha1"
	SHA256 = "sha256"
	XXH3   = "xxh3"

	DefaultAlgorithm = SHA1
)

type algorithm struct {
	size int // digest bytes
	sum  func([]byte) []byte
}

var algorithms = map[string]algorithm{
	SHA1:   {size: 20, sum: multihashSum(multihash.SHA1)},
	SHA256: {size: 32, sum: multihashSum(multihash.SHA2_256)},
	XXH3: {size: 16, sum: func(content []byte) []byte {
		h := xxh3.Hash128(content).Bytes()
		return h[:]
	}},
}

func multihashSum(code uint64) func([]byte) []byte {
	return func(content []byte) []byte {
		mh, err := multihash.Sum(content, code, -1)
		if err != nil {
			// Only reachable for an unregistered code.
			panic(fmt.Sprintf("multihash %d: %v", code, err))
		}
		decoded, err := multihash.Decode(mh)
		if err != nil {
			panic(fmt.Sprintf("decoding multihash: %v", err))
		}
		return decoded.Digest
	}
}

// Hasher turns content into a Digest. It is pure; the same content always
// gives the same digest for a given algorithm.
type Hasher struct {
	name string
	algo algorithm
}

func New(name string) (*Hasher, error) {
	algo, ok := algorithms[name]
	if !ok {
		return nil, errors.ValidationError(fmt.Sprintf("unknown hash algorithm %q", name))
	}
	return &Hasher{name: name, algo: algo}, nil
}

func (h *Hasher) Name() string { return h.name }

// Width is the length of a digest in hex characters.
func (h *Hasher) Width() int { return h.algo.size * 2 }

func (h *Hasher) Sum(content []byte) Digest {
	return Digest(hex.EncodeToString(h.algo.sum(content)))
}

// Valid reports whether d has the shape of a digest from this hasher.
func (h *Hasher) Valid(d Digest) bool {
	if len(d) != h.Width() {
		return false
	}
	for _, c := range []byte(d) {
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}

// Algorithms lists the supported names.
func Algorithms() []string {
	return []string{SHA1, SHA256, XXH3}
}
