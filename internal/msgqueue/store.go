// Package msgqueue is the queued inter-service message store (§3): a
// small bbolt-backed mailbox used for asynchronous bot<->ingestor
// relay that doesn't fit the synchronous HTTP control plane (e.g.
// deferred notifications, retry of a failed send_file). Grounded on
// the teacher's internal/infra/telegram/peersmgr bbolt-open pattern
// (timeout-bounded Open, single bucket, JSON-encoded values).
package msgqueue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	bucketName  = "messages"
	dbFileMode  = 0o600
	openTimeout = 1 * time.Second
)

var bucketBytes = []byte(bucketName)

// Message is one queued inter-service payload.
type Message struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"`
	From      string          `json:"from_service"`
	To        string          `json:"to_service"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
}

// Store is a bbolt-backed FIFO mailbox keyed by message UUID.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the bbolt file at path and
// ensures its single bucket exists.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("msgqueue: ensure dir %s: %w", dir, err)
		}
	}

	db, err := bbolt.Open(path, dbFileMode, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("msgqueue: open db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBytes)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("msgqueue: create bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue creates a new queued message from the sender's service to
// the receiver's, returning its generated id.
func (s *Store) Enqueue(from, to, msgType string, payload json.RawMessage) (string, error) {
	msg := Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Type:      msgType,
		Payload:   payload,
		CreatedAt: time.Now().Unix(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBytes)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		msg.Seq = seq

		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		return b.Put([]byte(msg.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("msgqueue: enqueue: %w", err)
	}
	return msg.ID, nil
}

// Dequeue returns every message addressed to service to, in enqueue
// order (by bucket sequence, not wall-clock time, so messages enqueued
// within the same second still come back in the order they were put
// in), without removing them. The receiver acknowledges each one
// individually via Ack once processed.
func (s *Store) Dequeue(to string) ([]Message, error) {
	var out []Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBytes)
		return b.ForEach(func(k, v []byte) error {
			var msg Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return fmt.Errorf("decode message %s: %w", string(k), err)
			}
			if msg.To == to {
				out = append(out, msg)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("msgqueue: dequeue: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Ack deletes id after the receiver has finished processing it.
func (s *Store) Ack(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBytes).Delete([]byte(id))
	})
}

// Reap deletes every message older than maxAge, returning the count
// removed. Intended to run on a periodic timer so crashed receivers
// don't leave the mailbox growing unbounded.
func (s *Store) Reap(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	var toDelete [][]byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBytes)
		return b.ForEach(func(k, v []byte) error {
			var msg Message
			if err := json.Unmarshal(v, &msg); err != nil {
				toDelete = append(toDelete, append([]byte(nil), k...))
				return nil
			}
			if msg.CreatedAt < cutoff {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("msgqueue: reap scan: %w", err)
	}
	if len(toDelete) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketBytes)
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("msgqueue: reap delete: %w", err)
	}
	return len(toDelete), nil
}
