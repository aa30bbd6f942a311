package rawcooked

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// HashScheme is the one byte id written ahead of a file hash.
type HashScheme byte

// These are the hash algorithms known to the reversibility format.
const (
	HashMD5 HashScheme = iota
	HashSHA2_256
	HashBLAKE2b256
	HashSHA3_256
	HashXXH64
)

var hashNames = [...]string{"md5", "sha256", "blake2b", "sha3", "xxh64"}

func (h HashScheme) String() string {
	if int(h) < len(hashNames) {
		return hashNames[h]
	}
	return fmt.Sprintf("HashScheme(%d)", byte(h))
}

// ParseHashScheme returns the scheme named s, as printed by String.
func ParseHashScheme(s string) (HashScheme, error) {
	for i, n := range hashNames {
		if n == s {
			return HashScheme(i), nil
		}
	}
	return 0, fmt.Errorf("unknown hash scheme %q", s)
}

// Valid returns nil iff the HashScheme is known.
func (h HashScheme) Valid() error {
	if int(h) < len(hashNames) {
		return nil
	}
	return fmt.Errorf("unknown hash scheme 0x%x", byte(h))
}

// New returns a fresh hash.Hash for the scheme.
func (h HashScheme) New() hash.Hash {
	switch h {
	case HashMD5:
		return md5.New()
	case HashSHA2_256:
		return sha256.New()
	case HashBLAKE2b256:
		d, _ := blake2b.New256(nil)
		return d
	case HashSHA3_256:
		return sha3.New256()
	case HashXXH64:
		return xxhash.New()
	}
	panic(h.Valid())
}

// Size returns the digest size of the scheme.
func (h HashScheme) Size() int {
	return h.New().Size()
}

// Hash is a digest together with the scheme that produced it.
type Hash struct {
	Scheme HashScheme
	Sum    []byte
}

// Sum hashes the concatenation of ranges.
func (h HashScheme) Sum(ranges ...[]byte) Hash {
	d := h.New()
	for _, r := range ranges {
		d.Write(r)
	}
	return Hash{Scheme: h, Sum: d.Sum(nil)}
}

func (h Hash) String() string {
	return fmt.Sprintf("%s:%x", h.Scheme, h.Sum)
}
