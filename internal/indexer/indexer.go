// Package indexer implements the Buffered Indexer (§4.1): a
// thread-safe, size- and time-triggered batcher sitting in front of
// the search engine client. Grounded on apm-server's modelindexer
// pattern (mutex-guarded active buffer, background flush timer,
// atomic stat counters) adapted from one bulk-request buffer per
// concurrent slot to one slice buffer with in-process batch_size and
// flush_interval triggers.
package indexer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
)

// Stats is a snapshot of the indexer's lifetime counters.
type Stats struct {
	Buffered   int64
	Flushed    int64
	Batches    int64
	Errors     int64
	BufferSize int
}

// Indexer buffers document upserts and flushes them in batches to the
// search engine, either when the buffer reaches BatchSize or when
// FlushInterval elapses, whichever comes first.
type Indexer struct {
	client    *searchclient.Client
	batchSize int
	interval  time.Duration

	mu     sync.Mutex
	buffer []document.Message

	buffered int64
	flushed  int64
	batches  int64
	errors   int64

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New builds an Indexer. batchSize <= 0 defaults to 50; interval <= 0
// defaults to 30s.
func New(client *searchclient.Client, batchSize int, interval time.Duration) *Indexer {
	if batchSize <= 0 {
		batchSize = 50
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	idx := &Indexer{
		client:    client,
		batchSize: batchSize,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go idx.flushLoop()
	return idx
}

// Upsert appends doc to the buffer. When the append leaves the buffer
// shorter than batchSize, it returns without any network I/O. When the
// buffer reaches batchSize, Upsert calls Flush on the calling goroutine
// and returns only after that batch request has completed or failed.
func (idx *Indexer) Upsert(doc document.Message) {
	idx.mu.Lock()
	idx.buffer = append(idx.buffer, doc)
	atomic.AddInt64(&idx.buffered, 1)
	shouldFlush := len(idx.buffer) >= idx.batchSize
	idx.mu.Unlock()

	if shouldFlush {
		idx.Flush()
	}
}

// Flush drains the current buffer and hands it to the search engine,
// returning only once that batch is acknowledged (or has failed).
func (idx *Indexer) Flush() error {
	idx.mu.Lock()
	if len(idx.buffer) == 0 {
		idx.mu.Unlock()
		return nil
	}
	batch := idx.buffer
	idx.buffer = nil
	idx.mu.Unlock()

	resp, err := idx.client.UpsertBatch(context.Background(), searchclient.BatchUpsertRequest{Messages: batch})

	idx.mu.Lock()
	idx.batches++
	if err != nil {
		idx.errors += int64(len(batch))
		idx.mu.Unlock()
		logging.Errorf("indexer: flush of %d documents failed: %v", len(batch), err)
		return err
	}
	idx.flushed += int64(resp.IndexedCount)
	idx.errors += int64(resp.FailedCount)
	idx.mu.Unlock()

	if resp.FailedCount > 0 {
		logging.Warnf("indexer: batch upsert reported %d failures: %v", resp.FailedCount, resp.Errors)
	}
	return nil
}

// Shutdown stops the background flusher and performs one final Flush.
func (idx *Indexer) Shutdown() error {
	var err error
	idx.once.Do(func() {
		close(idx.stopCh)
		<-idx.doneCh
		err = idx.Flush()
		stats := idx.Stats()
		logging.Infof("indexer: shutdown complete: buffered=%d flushed=%d batches=%d errors=%d",
			stats.Buffered, stats.Flushed, stats.Batches, stats.Errors)
	})
	return err
}

// Stats returns a snapshot of the indexer's counters.
func (idx *Indexer) Stats() Stats {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return Stats{
		Buffered:   atomic.LoadInt64(&idx.buffered),
		Flushed:    idx.flushed,
		Batches:    idx.batches,
		Errors:     idx.errors,
		BufferSize: len(idx.buffer),
	}
}

func (idx *Indexer) flushLoop() {
	defer close(idx.doneCh)
	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	for {
		select {
		case <-idx.stopCh:
			return
		case <-ticker.C:
			idx.mu.Lock()
			empty := len(idx.buffer) == 0
			idx.mu.Unlock()
			if !empty {
				_ = idx.Flush()
			}
		}
	}
}
