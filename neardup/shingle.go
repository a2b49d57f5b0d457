package neardup

import "strings"

// DefaultShingleSize is the k used for k-shingles unless a caller
// overrides it.
const DefaultShingleSize = 3

// Shingles produces the set of space-joined k-token shingles over the
// normalised text. A text with fewer than k tokens yields one shingle
// equal to the whole normalised text, so very short items still get a
// signature instead of an empty set.
func Shingles(text string, k int) []string {
	if k <= 0 {
		k = DefaultShingleSize
	}
	toks := Tokens(text)
	if len(toks) < k {
		return []string{strings.Join(toks, " ")}
	}

	seen := make(map[string]struct{}, len(toks)-k+1)
	out := make([]string, 0, len(toks)-k+1)
	for i := 0; i+k <= len(toks); i++ {
		sh := strings.Join(toks[i:i+k], " ")
		if _, dup := seen[sh]; dup {
			continue
		}
		seen[sh] = struct{}{}
		out = append(out, sh)
	}
	return out
}
