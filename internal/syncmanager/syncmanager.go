package syncmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/indexer"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

// ErrUnknownChat is returned by operations on a chat id the manager
// has never seen.
var ErrUnknownChat = errors.New("syncmanager: unknown chat")

// ErrInvalidState is returned when an operation is rejected because
// the chat's current status does not permit it (§4.2's AddChat on an
// already-enrolled, non-completed chat).
var ErrInvalidState = errors.New("syncmanager: invalid state for operation")

// Options configures a Manager.
type Options struct {
	CheckpointFile      string
	BatchSize           int
	RetryOnError        bool
	MaxRetries          int
	ResumeOnRestart     bool
	ClearCompleted      bool
	DelayBetweenBatches time.Duration
}

func (o *Options) setDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.DelayBetweenBatches <= 0 {
		o.DelayBetweenBatches = defaultDelayBetweenBatches
	}
}

// Manager runs the historical sync worker against a single set of
// chats, persisting progress to a checkpoint file after every batch.
type Manager struct {
	opts    Options
	fetcher HistoryFetcher
	idx     *indexer.Indexer

	mu       sync.Mutex
	chats    map[int64]*Progress
	current  int64

	workerStop chan struct{}
	workerDone chan struct{}
	workerOn   bool
}

// New constructs a Manager, loading any existing checkpoint at
// opts.CheckpointFile per ResumeOnRestart/ClearCompleted.
func New(fetcher HistoryFetcher, idx *indexer.Indexer, opts Options) (*Manager, error) {
	opts.setDefaults()

	chats := map[int64]*Progress{}
	if opts.ResumeOnRestart && opts.CheckpointFile != "" {
		loaded, err := loadCheckpoint(opts.CheckpointFile, opts.ClearCompleted)
		if err != nil {
			return nil, err
		}
		chats = loaded
	}

	return &Manager{
		opts:    opts,
		fetcher: fetcher,
		idx:     idx,
		chats:   chats,
	}, nil
}

// AddChat enrolls chatID per §4.2: a new chat is created pending; a
// completed chat is reset to pending; anything else is rejected.
func (m *Manager) AddChat(chatID int64, requestedBy int64) (*Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.chats[chatID]; ok {
		if existing.Status != StatusCompleted {
			return nil, fmt.Errorf("%w: chat %d is %s", ErrInvalidState, chatID, existing.Status)
		}
		existing.Status = StatusPending
		existing.ErrorCount = 0
		existing.LastError = ""
		existing.RequestedBy = requestedBy
		if err := m.persistLocked(); err != nil {
			return nil, err
		}
		clone := *existing
		return &clone, nil
	}

	rec := &Progress{ChatID: chatID, Status: StatusPending, RequestedBy: requestedBy}
	m.chats[chatID] = rec
	if err := m.persistLocked(); err != nil {
		return nil, err
	}
	clone := *rec
	return &clone, nil
}

// GetProgress returns a snapshot of one chat's progress.
func (m *Manager) GetProgress(chatID int64) (*Progress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.chats[chatID]
	if !ok {
		return nil, false
	}
	clone := *p
	return &clone, true
}

// GetAllProgress returns a snapshot of every tracked chat.
func (m *Manager) GetAllProgress() []Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Progress, 0, len(m.chats))
	for _, p := range m.chats {
		out = append(out, *p)
	}
	return out
}

// GetSummary aggregates status counts across tracked chats.
func (m *Manager) GetSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Summary{CurrentChat: m.current}
	for _, p := range m.chats {
		s.Total++
		switch p.Status {
		case StatusPending:
			s.Pending++
		case StatusInProgress:
			s.InProgress++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusPaused:
			s.Paused++
		}
	}
	return s
}

// ClearCompleted drops every completed record from memory and the
// checkpoint.
func (m *Manager) ClearCompleted() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.chats {
		if p.Status == StatusCompleted {
			delete(m.chats, id)
		}
	}
	return m.persistLocked()
}

// PauseChat requests that chatID pause at its next batch boundary.
func (m *Manager) PauseChat(chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.chats[chatID]
	if !ok {
		return ErrUnknownChat
	}
	p.Status = StatusPaused
	return m.persistLocked()
}

// ResumeChat moves a paused chat back to pending so the worker picks
// it up again.
func (m *Manager) ResumeChat(chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.chats[chatID]
	if !ok {
		return ErrUnknownChat
	}
	if p.Status != StatusPaused {
		return fmt.Errorf("%w: chat %d is %s, not paused", ErrInvalidState, chatID, p.Status)
	}
	p.Status = StatusPending
	return m.persistLocked()
}

func (m *Manager) persistLocked() error {
	if m.opts.CheckpointFile == "" {
		return nil
	}
	return persistCheckpoint(m.opts.CheckpointFile, m.chats)
}

// StartWorker launches the single background goroutine that scans for
// pending chats and syncs them one at a time.
func (m *Manager) StartWorker() {
	m.mu.Lock()
	if m.workerOn {
		m.mu.Unlock()
		return
	}
	m.workerOn = true
	m.workerStop = make(chan struct{})
	m.workerDone = make(chan struct{})
	m.mu.Unlock()

	go m.workerLoop()
}

// StopWorker signals the worker to exit and waits for it to finish its
// current iteration.
func (m *Manager) StopWorker() {
	m.mu.Lock()
	if !m.workerOn {
		m.mu.Unlock()
		return
	}
	stop := m.workerStop
	done := m.workerDone
	m.workerOn = false
	m.mu.Unlock()

	close(stop)
	<-done
}

func (m *Manager) workerLoop() {
	defer close(m.workerDone)
	for {
		select {
		case <-m.workerStop:
			return
		default:
		}

		chatID, ok := m.nextPending()
		if !ok {
			select {
			case <-m.workerStop:
				return
			case <-time.After(1 * time.Second):
				continue
			}
		}

		m.setCurrent(chatID)
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Errorf("syncmanager: panic syncing chat %d: %v", chatID, r)
					time.Sleep(5 * time.Second)
				}
			}()
			if err := m.SyncChat(context.Background(), chatID, nil); err != nil {
				logging.Warnf("syncmanager: sync of chat %d ended with error: %v", chatID, err)
			}
		}()
		m.setCurrent(0)
	}
}

func (m *Manager) nextPending() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.chats {
		if p.Status == StatusPending {
			return id, true
		}
	}
	return 0, false
}

func (m *Manager) setCurrent(chatID int64) {
	m.mu.Lock()
	m.current = chatID
	m.mu.Unlock()
}

// SyncChat runs the full history backfill of chatID on the calling
// goroutine (§4.2's algorithm), invoking cb after every persisted
// batch. It returns nil on successful completion.
func (m *Manager) SyncChat(ctx context.Context, chatID int64, cb ProgressCallback) error {
	p, ok := m.GetProgress(chatID)
	if !ok {
		return ErrUnknownChat
	}

	m.mu.Lock()
	rec := m.chats[chatID]
	rec.Status = StatusInProgress
	if rec.StartedAt == 0 {
		rec.StartedAt = time.Now().Unix()
	}
	if err := m.persistLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	if p.TotalCount == 0 {
		total, err := m.fetcher.TotalCount(chatID)
		if err != nil {
			logging.Warnf("syncmanager: total count for chat %d unavailable: %v", chatID, err)
		} else {
			m.mu.Lock()
			rec.TotalCount = total
			m.mu.Unlock()
		}
	}

	offset := rec.LastMessageID
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, hasMore, err := m.fetcher.FetchHistory(chatID, offset, m.opts.BatchSize)
		if err != nil {
			if rl := asRateLimited(err); rl != nil {
				m.mu.Lock()
				rec.Status = StatusPaused
				rec.LastError = fmt.Sprintf("FloodWait: %ds", rl.WaitSeconds)
				_ = m.persistLocked()
				m.mu.Unlock()
				time.Sleep(time.Duration(rl.WaitSeconds) * time.Second)
				return m.SyncChat(ctx, chatID, cb)
			}

			var upstreamErr *UpstreamError
			if errors.As(err, &upstreamErr) && upstreamErr.Kind == KindPermissionDenied {
				m.mu.Lock()
				rec.Status = StatusFailed
				rec.LastError = upstreamErr.Error()
				_ = m.persistLocked()
				m.mu.Unlock()
				return err
			}

			m.mu.Lock()
			rec.ErrorCount++
			rec.LastError = err.Error()
			bail := rec.ErrorCount >= m.opts.MaxRetries || !m.opts.RetryOnError
			if bail {
				rec.Status = StatusFailed
			}
			_ = m.persistLocked()
			m.mu.Unlock()
			if bail {
				return err
			}
			continue
		}

		if len(messages) == 0 {
			break
		}

		if err := m.idx.Flush(); err != nil {
			logging.Warnf("syncmanager: defensive flush before batch upsert failed: %v", err)
		}
		for _, msg := range messages {
			m.idx.Upsert(msg)
		}
		if err := m.idx.Flush(); err != nil {
			m.mu.Lock()
			rec.ErrorCount++
			rec.LastError = err.Error()
			bail := rec.ErrorCount >= m.opts.MaxRetries || !m.opts.RetryOnError
			if bail {
				rec.Status = StatusFailed
			}
			_ = m.persistLocked()
			m.mu.Unlock()
			if bail {
				return err
			}
			continue
		}

		last := messages[len(messages)-1]
		m.mu.Lock()
		rec.SyncedCount += int64(len(messages))
		rec.LastMessageID = last.MessageID
		rec.LastCheckpoint = time.Now().Unix()
		_ = m.persistLocked()
		snapshot := *rec
		paused := rec.Status == StatusPaused
		m.mu.Unlock()

		if cb != nil {
			cb(snapshot)
		}

		if paused {
			return nil
		}

		if !hasMore {
			break
		}
		offset = last.MessageID
		time.Sleep(m.opts.DelayBetweenBatches)
	}

	if err := m.idx.Flush(); err != nil {
		logging.Warnf("syncmanager: final flush for chat %d failed: %v", chatID, err)
	}

	m.mu.Lock()
	rec.Status = StatusCompleted
	rec.CompletedAt = time.Now().Unix()
	err := m.persistLocked()
	m.mu.Unlock()
	return err
}

func asRateLimited(err error) *RateLimited {
	var rl *RateLimited
	if errors.As(err, &rl) {
		return rl
	}
	return nil
}
