// Package dedup separates newly discovered images from already seen ones.
package dedup

import "fave_relay/internal/model"

// Filter returns the images of batch whose content hash is not in seen, in
// batch order, together with seen extended by every hash in batch. An image
// repeated within batch is reported once. seen itself is not modified.
func Filter(batch []model.Image, seen model.SeenSet) ([]model.Image, model.SeenSet) {
	updated := seen.Clone()
	var fresh []model.Image
	for _, img := range batch {
		if updated.Has(img.ContentHash) {
			continue
		}
		updated[img.ContentHash] = struct{}{}
		fresh = append(fresh, img)
	}
	return fresh, updated
}
