// Package neardup detects near-duplicate articles with MinHash signatures
// over token shingles and a banded LSH index. The index answers "have we
// already accepted something almost identical to this text" in constant
// time per lookup, without a pairwise scan of the corpus.
package neardup

import (
	"encoding/binary"
	"sync"
)

// LSH banding: 16 bands of 8 rows over the 128-permutation signature puts
// the S-curve threshold near (1/16)^(1/8) ~ 0.71, so pairs at the 0.8
// target collide with high probability and get verified exactly.
const (
	lshBands = 16
	lshRows  = NumPerm / lshBands
)

// IndexConfig tunes the duplicate index.
type IndexConfig struct {
	// Threshold is the Jaccard similarity above which two texts count as
	// duplicates. Default 0.8.
	Threshold float64
	// MaxEntries bounds memory; beyond it the oldest entries are evicted.
	// Default 100000. Zero or negative means the default, not unbounded.
	MaxEntries int
	// ShingleSize is the k for k-shingles. Default 3.
	ShingleSize int
}

func (c *IndexConfig) defaults() {
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = 0.8
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 100000
	}
	if c.ShingleSize <= 0 {
		c.ShingleSize = DefaultShingleSize
	}
}

// IndexStats is a snapshot of the index counters.
type IndexStats struct {
	Entries    int
	Adds       int64
	Duplicates int64
	Evictions  int64
	Errors     int64
}

// Index is a MinHash-LSH near-duplicate index keyed by content hash. It is
// owned by one worker and safe for use from its concurrent batch
// goroutines.
type Index struct {
	cfg IndexConfig

	mu      sync.Mutex
	buckets [lshBands]map[string][]string
	sigs    map[string]Signature
	order   []string          // insertion order, oldest first
	dups    map[string]string // querent hash -> matched hash

	adds       int64
	duplicates int64
	evictions  int64
	errors     int64
}

// NewIndex builds an empty index.
func NewIndex(cfg IndexConfig) *Index {
	cfg.defaults()
	idx := &Index{
		cfg:  cfg,
		sigs: make(map[string]Signature),
		dups: make(map[string]string),
	}
	for b := range idx.buckets {
		idx.buckets[b] = make(map[string][]string)
	}
	return idx
}

// Add checks title+text against the index and returns true when the
// content is unique. A unique item is inserted under its content hash; a
// duplicate records the relation to the first verified match and is not
// inserted. Internal inconsistencies fail open: the item is treated as
// unique and an error counter is incremented.
func (x *Index) Add(contentHash, title, text string) bool {
	sig := MinHash(Shingles(title+" "+text, x.cfg.ShingleSize))

	x.mu.Lock()
	defer x.mu.Unlock()
	x.adds++

	if _, exists := x.sigs[contentHash]; exists {
		x.duplicates++
		x.dups[contentHash] = contentHash
		return false
	}

	if match, ok := x.lookupLocked(sig, contentHash); ok {
		x.duplicates++
		x.dups[contentHash] = match
		return false
	}

	x.sigs[contentHash] = sig
	for b := 0; b < lshBands; b++ {
		key := bandKey(sig, b)
		x.buckets[b][key] = append(x.buckets[b][key], contentHash)
	}
	x.order = append(x.order, contentHash)
	if len(x.order) > x.cfg.MaxEntries {
		x.evictLocked(x.cfg.MaxEntries)
	}
	return true
}

// Find returns the content hashes of indexed entries whose similarity to
// title+text meets the threshold. It never modifies the index.
func (x *Index) Find(title, text string) []string {
	sig := MinHash(Shingles(title+" "+text, x.cfg.ShingleSize))

	x.mu.Lock()
	defer x.mu.Unlock()

	seen := make(map[string]struct{})
	var out []string
	for b := 0; b < lshBands; b++ {
		for _, cand := range x.buckets[b][bandKey(sig, b)] {
			if _, dup := seen[cand]; dup {
				continue
			}
			seen[cand] = struct{}{}
			csig, ok := x.sigs[cand]
			if !ok {
				x.errors++
				continue
			}
			if Estimate(sig, csig) >= x.cfg.Threshold {
				out = append(out, cand)
			}
		}
	}
	return out
}

// lookupLocked returns the first verified match for sig, excluding self.
func (x *Index) lookupLocked(sig Signature, self string) (string, bool) {
	for b := 0; b < lshBands; b++ {
		for _, cand := range x.buckets[b][bandKey(sig, b)] {
			if cand == self {
				continue
			}
			csig, ok := x.sigs[cand]
			if !ok {
				x.errors++
				continue
			}
			if Estimate(sig, csig) >= x.cfg.Threshold {
				return cand, true
			}
		}
	}
	return "", false
}

// DuplicateOf reports which indexed entry a previously rejected hash
// matched.
func (x *Index) DuplicateOf(contentHash string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	m, ok := x.dups[contentHash]
	return m, ok
}

// EvictOldest shrinks the index to at most max entries, dropping the
// oldest by insertion order. It returns the number evicted.
func (x *Index) EvictOldest(max int) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.evictLocked(max)
}

func (x *Index) evictLocked(max int) int {
	if max < 0 {
		max = 0
	}
	evicted := 0
	for len(x.order) > max {
		h := x.order[0]
		x.order = x.order[1:]
		sig, ok := x.sigs[h]
		if !ok {
			x.errors++
			continue
		}
		for b := 0; b < lshBands; b++ {
			key := bandKey(sig, b)
			bucket := x.buckets[b][key]
			for i, cand := range bucket {
				if cand == h {
					x.buckets[b][key] = append(bucket[:i], bucket[i+1:]...)
					break
				}
			}
			if len(x.buckets[b][key]) == 0 {
				delete(x.buckets[b], key)
			}
		}
		delete(x.sigs, h)
		delete(x.dups, h)
		evicted++
		x.evictions++
	}
	return evicted
}

// Len returns the number of live entries.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.order)
}

// Stats snapshots the counters.
func (x *Index) Stats() IndexStats {
	x.mu.Lock()
	defer x.mu.Unlock()
	return IndexStats{
		Entries:    len(x.order),
		Adds:       x.adds,
		Duplicates: x.duplicates,
		Evictions:  x.evictions,
		Errors:     x.errors,
	}
}

func bandKey(sig Signature, band int) string {
	var buf [lshRows * 8]byte
	for r := 0; r < lshRows; r++ {
		binary.LittleEndian.PutUint64(buf[r*8:], sig[band*lshRows+r])
	}
	return string(buf[:])
}
