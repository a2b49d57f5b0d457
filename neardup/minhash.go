package neardup

import (
	"math"
	"math/rand/v2"
)

// NumPerm is the number of MinHash permutations. 128 keeps the standard
// error of the Jaccard estimate around 1/sqrt(128) ~ 0.09, tight enough
// for a 0.8 duplicate threshold.
const NumPerm = 128

// Signature is a MinHash signature: the minimum of each permutation over
// the shingle set's 64-bit hashes.
type Signature [NumPerm]uint64

// The permutation family is multiply-shift hashing h_i(x) = a_i*x + b_i
// over uint64 with odd a_i. Coefficients come from a fixed-seed PCG so
// signatures are comparable across processes and restarts.
var permA, permB [NumPerm]uint64

func init() {
	rng := rand.New(rand.NewPCG(0x73706f72, 0x74776972))
	for i := 0; i < NumPerm; i++ {
		permA[i] = rng.Uint64() | 1
		permB[i] = rng.Uint64()
	}
}

// MinHash computes the signature of a shingle set. An empty set yields the
// all-max signature, which matches nothing.
func MinHash(shingles []string) Signature {
	var sig Signature
	for i := range sig {
		sig[i] = math.MaxUint64
	}
	for _, sh := range shingles {
		x := hash64(sh)
		for i := 0; i < NumPerm; i++ {
			if v := permA[i]*x + permB[i]; v < sig[i] {
				sig[i] = v
			}
		}
	}
	return sig
}

// Estimate returns the estimated Jaccard similarity between two
// signatures: the fraction of permutations whose minima agree.
func Estimate(a, b Signature) float64 {
	equal := 0
	for i := 0; i < NumPerm; i++ {
		if a[i] == b[i] {
			equal++
		}
	}
	return float64(equal) / float64(NumPerm)
}
