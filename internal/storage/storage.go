// Package storage persists bot state as flat snapshot files.
//
// Every write replaces the whole file: the new content goes to a temporary
// file next to the target, is synced, and is then renamed over it. Paths ending
// in ".zst" are zstd-compressed.
package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const zstdSuffix = ".zst"

type zstdCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCodec() (*zstdCodec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &zstdCodec{encoder: encoder, decoder: decoder}, nil
}

// snapshotFile reads and writes one snapshot file.
type snapshotFile struct {
	path  string
	codec *zstdCodec
}

func newSnapshotFile(path string) (*snapshotFile, error) {
	f := &snapshotFile{path: path}
	if strings.HasSuffix(path, zstdSuffix) {
		c, err := newZstdCodec()
		if err != nil {
			return nil, err
		}
		f.codec = c
	}
	return f, nil
}

// read returns the decoded file content. A missing file yields an error
// matching os.ErrNotExist.
func (f *snapshotFile) read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if f.codec == nil {
		return data, nil
	}
	out, err := f.codec.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", f.path, err)
	}
	return out, nil
}

func (f *snapshotFile) write(data []byte) error {
	if f.codec != nil {
		data = f.codec.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	}
	return writeAtomic(f.path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
