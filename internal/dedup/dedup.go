// Package dedup suppresses near-duplicate stories within a single run.
//
// Matching is a fixed-prefix comparison of normalized title and body keys
// (see normalize.FingerprintKey). Reworded or reordered headlines are not
// caught; this is best-effort duplicate suppression, not exact detection.
package dedup

import (
	"sync"

	"github.com/deusflow/dailybrief/internal/news"
	"github.com/deusflow/dailybrief/internal/normalize"
)

const (
	DefaultTitleKeyLength = 15
	BodyKeyLength         = 30
)

// Deduplicator owns the fingerprint set for one run. The first candidate
// admitted with a given key wins; later ones are rejected.
type Deduplicator struct {
	mu       sync.Mutex
	titleLen int
	bodyLen  int
	seen     map[string]struct{}
	rejected int
}

// New returns an empty Deduplicator. A titleLen outside 12..15 falls back
// to DefaultTitleKeyLength, a non-positive bodyLen to BodyKeyLength.
func New(titleLen, bodyLen int) *Deduplicator {
	if titleLen < 12 || titleLen > 15 {
		titleLen = DefaultTitleKeyLength
	}
	if bodyLen <= 0 {
		bodyLen = BodyKeyLength
	}
	return &Deduplicator{
		titleLen: titleLen,
		bodyLen:  bodyLen,
		seen:     make(map[string]struct{}),
	}
}

// SeenTitle reports whether the title's key is already taken. It does not
// modify the set.
func (d *Deduplicator) SeenTitle(title string) bool {
	key := normalize.FingerprintKey(title, d.titleLen)
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[key]
	return ok
}

// Admit records the candidate's keys and returns true, or returns false if
// its title key or non-empty body key was seen before.
func (d *Deduplicator) Admit(c news.Candidate) bool {
	titleKey := normalize.FingerprintKey(c.Title, d.titleLen)
	bodyKey := normalize.FingerprintKey(c.Body, d.bodyLen)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[titleKey]; ok {
		d.rejected++
		return false
	}
	if bodyKey != "" {
		if _, ok := d.seen[bodyKey]; ok {
			d.rejected++
			return false
		}
	}

	d.seen[titleKey] = struct{}{}
	if bodyKey != "" {
		d.seen[bodyKey] = struct{}{}
	}
	return true
}

// Rejected returns how many candidates Admit turned away.
func (d *Deduplicator) Rejected() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rejected
}
