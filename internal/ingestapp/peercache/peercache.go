// Package peercache is a small bbolt-backed cache mapping a chat id to
// the peer metadata the ingestor needs to render document.ChatInfo and
// to build an InputPeerClass for messages.getHistory calls. Grounded
// on the teacher's internal/infra/telegram/peersmgr.Service (bbolt
// open options, dbFileMode/dbOpenTimeout, one-bucket JSON-value
// persistence), trimmed down from the teacher's full
// gotd/contrib-peers.Manager wrapper: SearchGram's sync manager only
// ever needs a chat's type/title/username plus the access hash its
// kind requires, never full entity resolution or dialog listing.
package peercache

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/tg"
	"go.etcd.io/bbolt"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
)

const (
	bucketName = "chats"
	dbFileMode = 0o600
	dbOpenWait = 1 * time.Second
)

// Entry is the cached metadata for one chat.
type Entry struct {
	Type       document.ChatType `json:"type"`
	Title      string            `json:"title"`
	Username   string            `json:"username"`
	AccessHash int64             `json:"access_hash"`
}

// ChatInfo projects Entry to the shape document.FromUpstreamMessage wants.
func (e Entry) ChatInfo() document.ChatInfo {
	return document.ChatInfo{Type: e.Type, Title: e.Title, Username: e.Username}
}

// InputPeer builds the InputPeerClass messages.getHistory needs to
// address chatID, using e's cached kind and access hash.
func (e Entry) InputPeer(chatID int64) (tg.InputPeerClass, error) {
	switch e.Type {
	case document.ChatPrivate, document.ChatBot:
		return &tg.InputPeerUser{UserID: chatID, AccessHash: e.AccessHash}, nil
	case document.ChatGroup:
		return &tg.InputPeerChat{ChatID: chatID}, nil
	case document.ChatSupergroup, document.ChatChannel:
		return &tg.InputPeerChannel{ChannelID: chatID, AccessHash: e.AccessHash}, nil
	default:
		return nil, fmt.Errorf("peercache: unknown chat type %q for %d", e.Type, chatID)
	}
}

// Cache wraps a bbolt database holding one Entry per chat id.
type Cache struct {
	mu sync.RWMutex
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt file at path and ensures
// its bucket exists.
func Open(path string) (*Cache, error) {
	db, err := bbolt.Open(path, dbFileMode, &bbolt.Options{Timeout: dbOpenWait})
	if err != nil {
		return nil, fmt.Errorf("peercache: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("peercache: init bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying bbolt database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores or overwrites the entry for chatID.
func (c *Cache) Put(chatID int64, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("peercache: marshal entry for %d: %w", chatID, err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put(chatKey(chatID), data)
	})
}

// Get returns the cached entry for chatID, or ok=false if absent.
func (c *Cache) Get(chatID int64) (e Entry, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_ = c.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get(chatKey(chatID))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil
		}
		ok = true
		return nil
	})
	return e, ok
}

// All returns every cached chat id, mainly for diagnostics.
func (c *Cache) All() map[int64]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[int64]Entry)
	_ = c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return nil
			}
			out[int64(binary.BigEndian.Uint64(k))] = e
			return nil
		})
	})
	return out
}

func chatKey(chatID int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(chatID))
	return buf
}

// EntryFromPeer builds the Entry for peer using the entity maps the
// dispatcher (or a messages.getHistory response) attaches alongside
// an update.
func EntryFromPeer(peer tg.PeerClass, entities tg.Entities) (int64, Entry, bool) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		u, ok := entities.Users[p.UserID]
		if !ok {
			return p.UserID, Entry{}, false
		}
		t := document.ChatPrivate
		if u.Bot {
			t = document.ChatBot
		}
		return p.UserID, Entry{Type: t, Title: joinName(u.FirstName, u.LastName), Username: u.Username, AccessHash: u.AccessHash}, true
	case *tg.PeerChat:
		c, ok := entities.Chats[p.ChatID]
		if !ok {
			return p.ChatID, Entry{}, false
		}
		return p.ChatID, Entry{Type: document.ChatGroup, Title: c.Title}, true
	case *tg.PeerChannel:
		ch, ok := entities.Channels[p.ChannelID]
		if !ok {
			return p.ChannelID, Entry{}, false
		}
		t := document.ChatSupergroup
		if ch.Broadcast {
			t = document.ChatChannel
		}
		return p.ChannelID, Entry{Type: t, Title: ch.Title, Username: ch.Username, AccessHash: ch.AccessHash}, true
	default:
		return 0, Entry{}, false
	}
}

func joinName(first, last string) string {
	if last == "" {
		return first
	}
	return first + " " + last
}
