// Package fsutil provides safe local filesystem primitives used anywhere
// SearchGram persists state that must never be observed half-written:
// the sync checkpoint file, the privacy opt-out file, and the ingestor's
// MTProto session file.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

// defaultFilePerm restricts persisted state files to the owning process.
const defaultFilePerm = 0o600

// EnsureDir makes sure the directory containing path exists.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}

// AtomicWriteFile writes data to path such that readers never observe a
// partially written file: it writes to a temp file in the same
// directory, fsyncs it, chmods it, closes it, then renames it over the
// target. rename is atomic within a single filesystem/volume.
func AtomicWriteFile(path string, data []byte) error {
	clean := filepath.Clean(path)
	if err := EnsureDir(clean); err != nil {
		return err
	}
	dir := filepath.Dir(clean)

	tmp, err := os.CreateTemp(dir, "atomic-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, clean); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	if dirFile, err := os.Open(dir); err == nil {
		if errSync := dirFile.Sync(); errSync != nil {
			logging.Warnf("fsutil: dir sync failed for %s: %v", dir, errSync)
		}
		_ = dirFile.Close()
	}
	return nil
}

// ReadOrInit reads path; if it doesn't exist, it atomically writes init
// and returns that instead. Used by the checkpoint and privacy stores to
// guarantee a valid file always exists after construction.
func ReadOrInit(path string, init []byte) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := AtomicWriteFile(path, init); err != nil {
			return nil, fmt.Errorf("init %s: %w", path, err)
		}
		return init, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
