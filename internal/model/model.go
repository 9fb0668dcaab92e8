// Package model defines the domain types used across the application.
package model

// MatchAll is the filter value that matches every image.
const MatchAll = "any"

// Subscription routes images matching Filter to Destination on behalf of Owner.
// The whole triple is the identity: two subscriptions differ if any field differs.
//
// The JSON names are those of the chats.json snapshot format.
type Subscription struct {
	Destination string `json:"chat_name"`
	Filter      string `json:"filter"`
	Owner       int64  `json:"requester"`
}

// Representations holds the preview URLs of an image in several sizes.
type Representations struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// Image is a single favourited image as returned by the feed.
type Image struct {
	ID          string
	Tags        string
	PageURL     string
	SourceURL   string
	Previews    Representations
	ContentHash string
}

// SeenSet holds the content hashes of images that have already been observed.
type SeenSet map[string]struct{}

// NewSeenSet creates a SeenSet containing the given hashes.
func NewSeenSet(hashes ...string) SeenSet {
	s := make(SeenSet, len(hashes))
	for _, h := range hashes {
		s[h] = struct{}{}
	}
	return s
}

// Has reports whether hash is in the set.
func (s SeenSet) Has(hash string) bool {
	_, ok := s[hash]
	return ok
}

// Clone returns an independent copy of the set.
func (s SeenSet) Clone() SeenSet {
	c := make(SeenSet, len(s))
	for h := range s {
		c[h] = struct{}{}
	}
	return c
}
