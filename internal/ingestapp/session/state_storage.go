package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/gotd/td/telegram/updates"

	"github.com/ZhiShengYuan/SearchGram/internal/fsutil"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

// StateStorage persists tgupdates.Manager's per-account Pts/Qts/Seq/Date
// state (and per-channel Pts) to a JSON file, adapted from the
// teacher's internal/adapters/telegram/core.fileStorage: same lazy
// load, in-memory map, atomic-write-on-every-mutation shape, rebuilt
// on internal/fsutil instead of the teacher's internal/infra/storage.
type StateStorage struct {
	path string

	mux      sync.Mutex
	loaded   bool
	states   map[int64]updates.State
	channels map[int64]map[int64]int
}

var _ updates.StateStorage = (*StateStorage)(nil)

type persistedState struct {
	States   map[int64]updates.State `json:"states"`
	Channels map[int64]map[int64]int `json:"channels"`
}

// NewStateStorage builds a StateStorage backed by path. No filesystem
// access happens until the first call.
func NewStateStorage(path string) *StateStorage {
	return &StateStorage{
		path:     path,
		states:   map[int64]updates.State{},
		channels: map[int64]map[int64]int{},
	}
}

func (s *StateStorage) load() error {
	if s.loaded {
		return nil
	}
	p, err := ensureStateFile(s.path)
	if err != nil {
		return err
	}
	s.states = p.States
	s.channels = p.Channels
	s.loaded = true
	return nil
}

func ensureStateFile(path string) (persistedState, error) {
	clean := filepath.Clean(path)
	if err := fsutil.EnsureDir(filepath.Dir(clean)); err != nil {
		return persistedState{}, err
	}

	raw, err := os.ReadFile(clean)
	if os.IsNotExist(err) || len(raw) == 0 {
		p := persistedState{States: map[int64]updates.State{}, Channels: map[int64]map[int64]int{}}
		return p, writeStateFile(clean, p)
	}
	if err != nil {
		return persistedState{}, err
	}

	var p persistedState
	if err := json.Unmarshal(raw, &p); err != nil {
		logging.Warnf("session: corrupt state file %s, resetting: %v", clean, err)
		p = persistedState{States: map[int64]updates.State{}, Channels: map[int64]map[int64]int{}}
		return p, writeStateFile(clean, p)
	}
	if p.States == nil {
		p.States = map[int64]updates.State{}
	}
	if p.Channels == nil {
		p.Channels = map[int64]map[int64]int{}
	}
	return p, nil
}

func writeStateFile(path string, p persistedState) error {
	enc, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.AtomicWriteFile(path, enc)
}

func (s *StateStorage) persist() error {
	return writeStateFile(s.path, persistedState{States: s.states, Channels: s.channels})
}

func (s *StateStorage) GetState(ctx context.Context, userID int64) (updates.State, bool, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.load(); err != nil {
		return updates.State{}, false, err
	}
	st, ok := s.states[userID]
	return st, ok, nil
}

func (s *StateStorage) SetState(ctx context.Context, userID int64, state updates.State) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.states[userID] = state
	s.channels[userID] = map[int64]int{}
	return s.persist()
}

func (s *StateStorage) SetPts(ctx context.Context, userID int64, pts int) error {
	return s.updateState(userID, func(st *updates.State) { st.Pts = pts })
}

func (s *StateStorage) SetQts(ctx context.Context, userID int64, qts int) error {
	return s.updateState(userID, func(st *updates.State) { st.Qts = qts })
}

func (s *StateStorage) SetDate(ctx context.Context, userID int64, date int) error {
	return s.updateState(userID, func(st *updates.State) { st.Date = date })
}

func (s *StateStorage) SetSeq(ctx context.Context, userID int64, seq int) error {
	return s.updateState(userID, func(st *updates.State) { st.Seq = seq })
}

func (s *StateStorage) SetDateSeq(ctx context.Context, userID int64, date, seq int) error {
	return s.updateState(userID, func(st *updates.State) { st.Date = date; st.Seq = seq })
}

func (s *StateStorage) updateState(userID int64, apply func(*updates.State)) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	st, ok := s.states[userID]
	if !ok {
		return errors.New("session: state not found for user")
	}
	apply(&st)
	s.states[userID] = st
	return s.persist()
}

func (s *StateStorage) SetChannelPts(ctx context.Context, userID, channelID int64, pts int) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	chans, ok := s.channels[userID]
	if !ok {
		return errors.New("session: channel map does not exist for user")
	}
	chans[channelID] = pts
	return s.persist()
}

func (s *StateStorage) GetChannelPts(ctx context.Context, userID, channelID int64) (int, bool, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.load(); err != nil {
		return 0, false, err
	}
	chans, ok := s.channels[userID]
	if !ok {
		return 0, false, nil
	}
	pts, ok := chans[channelID]
	return pts, ok, nil
}

func (s *StateStorage) ForEachChannels(ctx context.Context, userID int64, fn func(ctx context.Context, channelID int64, pts int) error) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	chans, ok := s.channels[userID]
	if !ok {
		return errors.New("session: channel map does not exist for user")
	}
	for id, pts := range chans {
		if err := fn(ctx, id, pts); err != nil {
			return err
		}
	}
	return nil
}
