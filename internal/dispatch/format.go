package dispatch

import (
	"strings"

	"fave_relay/internal/filter"
	"fave_relay/internal/model"
)

// PhotoURL picks the largest preview available.
func PhotoURL(img model.Image) string {
	switch {
	case img.Previews.Large != "":
		return img.Previews.Large
	case img.Previews.Medium != "":
		return img.Previews.Medium
	default:
		return img.Previews.Small
	}
}

// Caption formats the photo caption: the image page, the artist tag and the
// source URL, one per line. Missing parts are left out.
func Caption(img model.Image) string {
	lines := make([]string, 0, 3)
	for _, s := range []string{img.PageURL, filter.Artist(img.Tags), img.SourceURL} {
		if s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}
