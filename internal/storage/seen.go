package storage

import (
	"fmt"
	"slices"

	json "github.com/goccy/go-json"

	"fave_relay/internal/model"
)

// SeenFile persists the set of seen content hashes as a JSON array.
type SeenFile struct {
	file *snapshotFile
}

// NewSeenFile returns a SeenFile backed by path.
func NewSeenFile(path string) (*SeenFile, error) {
	file, err := newSnapshotFile(path)
	if err != nil {
		return nil, err
	}
	return &SeenFile{file: file}, nil
}

// Load reads the seen set. ok is false if no snapshot exists yet, in which
// case the returned set is empty.
func (f *SeenFile) Load() (set model.SeenSet, ok bool, err error) {
	data, err := f.file.read()
	if err != nil {
		if isNotExist(err) {
			return model.NewSeenSet(), false, nil
		}
		return nil, false, err
	}

	var hashes []string
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, false, fmt.Errorf("decode seen images %s: %w", f.file.path, err)
	}
	return model.NewSeenSet(hashes...), true, nil
}

// Save replaces the snapshot with set.
func (f *SeenFile) Save(set model.SeenSet) error {
	hashes := make([]string, 0, len(set))
	for h := range set {
		hashes = append(hashes, h)
	}
	slices.Sort(hashes)

	data, err := json.Marshal(hashes)
	if err != nil {
		return fmt.Errorf("encode seen images: %w", err)
	}
	if err := f.file.write(data); err != nil {
		return fmt.Errorf("save seen images: %w", err)
	}
	return nil
}
