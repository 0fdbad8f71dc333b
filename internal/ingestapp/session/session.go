// Package session implements a file-backed gotd session.Storage,
// adapted from the teacher's
// internal/infra/telegram/session.FileStorage: same atomic
// write-then-rename persistence, rebuilt on internal/fsutil instead of
// the teacher's internal/infra/storage, and without the teacher's
// connection.MarkConnected() hook (SearchGram's ingestor has no
// separate connection-status subsystem to notify).
package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	tdsession "github.com/gotd/td/session"

	"github.com/ZhiShengYuan/SearchGram/internal/fsutil"
)

// FileStorage persists the MTProto session blob to a single file.
type FileStorage struct {
	Path string
	mux  sync.Mutex
}

var _ tdsession.Storage = (*FileStorage)(nil)

// LoadSession reads the stored session, or tdsession.ErrNotFound if
// the file doesn't exist yet (a brand new login).
func (f *FileStorage) LoadSession(ctx context.Context) ([]byte, error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, tdsession.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, tdsession.ErrNotFound
	}
	return data, nil
}

// StoreSession atomically writes data to the session file.
func (f *FileStorage) StoreSession(ctx context.Context, data []byte) error {
	f.mux.Lock()
	defer f.mux.Unlock()

	if err := fsutil.EnsureDir(filepath.Dir(f.Path)); err != nil {
		return err
	}
	return fsutil.AtomicWriteFile(f.Path, data)
}
