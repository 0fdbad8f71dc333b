// Package privacy implements the process-wide opt-out set consulted by
// the search pipeline to strip hits whose sender is a blocked user
// (§3, §4.5). The set is persisted as a JSON file, rewritten
// atomically on every mutation, grounded on the teacher's
// notifications.QueueStore ensure-file/reload pattern and
// internal/fsutil.AtomicWriteFile.
package privacy

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/fsutil"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

const fileVersion = 1

// fileFormat is the on-disk JSON shape (§6): {blocked_users, last_updated, version}.
type fileFormat struct {
	BlockedUsers []int64   `json:"blocked_users"`
	LastUpdated  time.Time `json:"last_updated"`
	Version      int       `json:"version"`
}

// Store is the mutex-guarded, file-backed blocked-user set.
type Store struct {
	path string

	mu      sync.RWMutex
	blocked map[int64]struct{}
}

// Open loads path, creating it with an empty set if it doesn't exist.
// A corrupt file is logged and replaced with an empty set rather than
// failing startup.
func Open(path string) (*Store, error) {
	empty, err := json.Marshal(fileFormat{BlockedUsers: []int64{}, LastUpdated: time.Now(), Version: fileVersion})
	if err != nil {
		return nil, fmt.Errorf("privacy: encode empty state: %w", err)
	}

	data, err := fsutil.ReadOrInit(path, empty)
	if err != nil {
		return nil, fmt.Errorf("privacy: open %s: %w", path, err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		logging.Warnf("privacy: %s is corrupt, resetting to empty set: %v", path, err)
		ff = fileFormat{BlockedUsers: []int64{}, LastUpdated: time.Now(), Version: fileVersion}
		if err := fsutil.AtomicWriteFile(path, empty); err != nil {
			return nil, fmt.Errorf("privacy: rewrite corrupt state: %w", err)
		}
	}

	blocked := make(map[int64]struct{}, len(ff.BlockedUsers))
	for _, id := range ff.BlockedUsers {
		blocked[id] = struct{}{}
	}

	return &Store{path: path, blocked: blocked}, nil
}

// IsBlocked reports whether userID has opted out of search visibility.
func (s *Store) IsBlocked(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocked[userID]
	return ok
}

// Snapshot returns a clone of the blocked-user set, safe to range over
// without holding the store's lock (§5: "reads clone the set to avoid
// holding the lock across filtering").
func (s *Store) Snapshot() map[int64]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := make(map[int64]struct{}, len(s.blocked))
	for id := range s.blocked {
		clone[id] = struct{}{}
	}
	return clone
}

// Block adds userID to the set. Returns false without writing if the
// user was already blocked.
func (s *Store) Block(userID int64) (bool, error) {
	s.mu.Lock()
	if _, already := s.blocked[userID]; already {
		s.mu.Unlock()
		return false, nil
	}
	s.blocked[userID] = struct{}{}
	err := s.persistLocked()
	s.mu.Unlock()
	return err == nil, err
}

// Unblock removes userID from the set. Returns false without writing if
// the user wasn't blocked.
func (s *Store) Unblock(userID int64) (bool, error) {
	s.mu.Lock()
	if _, present := s.blocked[userID]; !present {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.blocked, userID)
	err := s.persistLocked()
	s.mu.Unlock()
	return err == nil, err
}

// Count returns the number of currently blocked users.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocked)
}

// persistLocked serializes the current set and writes it atomically.
// Caller must hold s.mu for writing.
func (s *Store) persistLocked() error {
	ids := make([]int64, 0, len(s.blocked))
	for id := range s.blocked {
		ids = append(ids, id)
	}

	data, err := json.MarshalIndent(fileFormat{
		BlockedUsers: ids,
		LastUpdated:  time.Now(),
		Version:      fileVersion,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("privacy: encode state: %w", err)
	}

	if err := fsutil.AtomicWriteFile(s.path, data); err != nil {
		logging.Errorf("privacy: write %s failed: %v", s.path, err)
		return err
	}
	return nil
}
