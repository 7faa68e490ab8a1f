package storage

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic replaces dest with the contents of r. Data goes to a temp file in
// the same directory, is fsynced, then renamed over dest, so readers see either
// the old file or the new one.
func WriteAtomic(dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0644)

	bw := bufio.NewWriter(tmp)
	if _, err := io.Copy(bw, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	syncDir(dir)
	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload
func WriteFileAtomic(dest string, data []byte) error {
	return WriteAtomic(dest, bytes.NewReader(data))
}

// syncDir persists the rename on filesystems that need it; errors are ignored
func syncDir(dir string) {
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
}
