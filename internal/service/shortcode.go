package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Base62 character set for short code generation.
const base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var base62 = big.NewInt(62)

// ShortCodeGenerator produces random base62 short codes. Codes are
// never derived from the URL content or from a counter; every candidate
// is drawn independently, so concurrent writers only coordinate through
// the store's conditional insert.
type ShortCodeGenerator struct {
	codeLength int
}

// NewShortCodeGenerator creates a generator for codes of the given length.
func NewShortCodeGenerator(codeLength int) *ShortCodeGenerator {
	return &ShortCodeGenerator{codeLength: codeLength}
}

// Generate returns a fresh random code. Each candidate is encoded from
// 128 bits of crypto/rand entropy; the outer loop only repeats in the
// astronomically unlikely case that the random integer encodes to fewer
// base62 digits than the code length.
func (g *ShortCodeGenerator) Generate() (string, error) {
	code := make([]byte, 0, g.codeLength)
	rem := new(big.Int)

	for len(code) < g.codeLength {
		var buf [16]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		n := new(big.Int).SetBytes(buf[:])
		for n.Sign() > 0 && len(code) < g.codeLength {
			n.DivMod(n, base62, rem)
			code = append(code, base62Chars[rem.Int64()])
		}
	}

	return string(code), nil
}
