// Package filter implements the image tag matching engine.
package filter

import (
	"strings"

	"fave_relay/internal/model"
)

const artistPrefix = "artist:"

// Match checks whether an image with the given comma-separated tag string
// passes a subscription filter. The filter model.MatchAll passes everything;
// any other filter must equal one of the trimmed tags exactly.
func Match(tags, filter string) bool {
	if filter == model.MatchAll {
		return true
	}
	for _, tag := range splitTags(tags) {
		if tag == filter {
			return true
		}
	}
	return false
}

// Artist returns the first tag naming an artist, or "" if there is none.
func Artist(tags string) string {
	for _, tag := range splitTags(tags) {
		if strings.Contains(tag, artistPrefix) {
			return tag
		}
	}
	return ""
}

func splitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
