package storage

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrCursorMissing is returned by OpenCursor when the cursor file does not exist.
var ErrCursorMissing = errors.New("update cursor file missing")

// Cursor is the offset of the next unprocessed update in the inbound command
// feed. It only moves forward. Not safe for concurrent use.
type Cursor struct {
	path string
	next int
}

// OpenCursor reads the cursor stored as a decimal integer at path.
func OpenCursor(path string) (*Cursor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCursorMissing, path)
		}
		return nil, fmt.Errorf("read cursor: %w", err)
	}

	next, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse cursor %s: %w", path, err)
	}
	return &Cursor{path: path, next: next}, nil
}

// Next returns the offset to request updates from.
func (c *Cursor) Next() int {
	return c.next
}

// Advance moves the cursor past updateID if updateID is not behind it, and
// reports whether the cursor moved.
func (c *Cursor) Advance(updateID int) bool {
	if updateID < c.next {
		return false
	}
	c.next = updateID + 1
	return true
}

// Save writes the cursor to its file.
func (c *Cursor) Save() error {
	if err := writeAtomic(c.path, []byte(strconv.Itoa(c.next))); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
