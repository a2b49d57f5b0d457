package neardup

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ContentHash digests the normalised title and text into the 256-bit hex
// key used for exact-duplicate detection. Two articles that differ only in
// punctuation, casing or stopwords hash identically; any rewording does
// not.
func ContentHash(title, text string) string {
	sum := blake2b.Sum256([]byte(NormaliseText(title) + " " + NormaliseText(text)))
	return hex.EncodeToString(sum[:])
}

// hash64 maps a shingle to the 64-bit value fed into the MinHash
// permutation family.
func hash64(s string) uint64 {
	sum := blake2b.Sum256([]byte(s))
	return binary.BigEndian.Uint64(sum[:8])
}
