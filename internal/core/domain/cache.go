package domain

import "time"

// CacheEntry is one cached fetch payload, keyed by source and fetch intent.
type CacheEntry struct {
	// SourceKey identifies the cached fetch.
	SourceKey string `json:"source_key"`

	// Payload is the opaque fetched body.
	Payload []byte `json:"payload"`

	// FetchedAt is when the payload was fetched.
	FetchedAt time.Time `json:"fetched_at"`

	// TTL is the freshness window the entry was written with.
	TTL time.Duration `json:"ttl"`
}

// Fresh reports whether the entry is still live at now for the given ttl.
// A non-positive ttl never yields a fresh entry.
func (e *CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	if e == nil || ttl <= 0 {
		return false
	}
	return now.Before(e.FetchedAt.Add(ttl))
}

// CacheResult is what a CacheStore returns from GetOrFetch.
type CacheResult struct {
	Entry CacheEntry

	// Hit is true when the entry was served without calling the fetch function.
	Hit bool
}
