package bazbom

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

const SHA256 = "sha256"

// Digest is the hash of some content, used throughout bazbom for manifest
// content hashes and scan parameter fingerprints so the cache layer stays
// independent of a specific hashing algorithm.
type Digest struct {
	algo     string
	checksum []byte
	repr     string
}

// Checksum returns the raw checksum bytes.
func (d Digest) Checksum() []byte { return d.checksum }

// Algorithm returns the name of the hash algorithm used.
func (d Digest) Algorithm() string { return d.algo }

// Hash returns a fresh instance of the hash algorithm backing this Digest.
func (d Digest) Hash() hash.Hash {
	switch d.algo {
	case SHA256:
		return sha256.New()
	default:
		panic("Hash() called on an invalid Digest")
	}
}

func (d Digest) String() string { return d.repr }

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	b := make([]byte, len(d.repr))
	copy(b, d.repr)
	return b, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(t []byte) error {
	i := bytes.IndexByte(t, ':')
	if i == -1 {
		return &DigestError{msg: "invalid digest format"}
	}
	d.algo = string(t[:i])
	t = t[i+1:]
	b := make([]byte, hex.DecodedLen(len(t)))
	if _, err := hex.Decode(b, t); err != nil {
		return &DigestError{msg: "unable to decode digest as hex", inner: err}
	}
	return d.setChecksum(b)
}

// DigestError is the concrete type backing errors returned from Digest's
// methods.
type DigestError struct {
	msg   string
	inner error
}

func (e *DigestError) Error() string { return e.msg }
func (e *DigestError) Unwrap() error { return e.inner }

func (d *Digest) setChecksum(b []byte) error {
	var sz int
	switch d.algo {
	case SHA256:
		sz = sha256.Size
	default:
		return &DigestError{msg: fmt.Sprintf("unknown algorithm %q", d.algo)}
	}
	if l := len(b); l != sz {
		return &DigestError{msg: fmt.Sprintf("bad checksum length: %d", l)}
	}
	el := hex.EncodedLen(sz)
	hl := len(d.algo) + 1
	sb := make([]byte, hl+el)
	copy(sb, d.algo)
	sb[len(d.algo)] = ':'
	hex.Encode(sb[hl:], b)
	d.checksum = b
	d.repr = string(sb)
	return nil
}

// NewDigest constructs a Digest from raw checksum bytes.
func NewDigest(algo string, sum []byte) (Digest, error) {
	d := Digest{algo: algo}
	return d, d.setChecksum(sum)
}

// ParseDigest constructs a Digest from its string form, validating it.
func ParseDigest(digest string) (Digest, error) {
	d := Digest{}
	return d, d.UnmarshalText([]byte(digest))
}

// SumBytes returns the SHA-256 digest of b.
func SumBytes(b []byte) Digest {
	sum := sha256.Sum256(b)
	d, err := NewDigest(SHA256, sum[:])
	if err != nil {
		panic(err) // sha256.Sum256 always yields a valid-length sum
	}
	return d
}
