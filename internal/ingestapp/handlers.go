package ingestapp

import (
	"context"
	"time"

	"github.com/gotd/td/tg"

	"github.com/ZhiShengYuan/SearchGram/internal/concurrency"
	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/indexer"
	"github.com/ZhiShengYuan/SearchGram/internal/ingestapp/peercache"
	"github.com/ZhiShengYuan/SearchGram/internal/logging"
	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
)

// Handlers wires the MTProto update dispatcher to the Buffered
// Indexer. Grounded on the teacher's internal/domain/updates.Handlers:
// same dispatcher-callback shapes (OnNewMessage/OnEditMessage and
// their channel variants) and the same edit-debounce pattern, but
// replacing notification fan-out with indexing, and — unlike the
// teacher, which drops msg.Out to avoid notifying the account's own
// outgoing messages — indexing every message regardless of direction,
// since the system observes "incoming, outgoing, edited, and deleted
// messages" across every chat the account participates in.
type Handlers struct {
	idx       *indexer.Indexer
	peers     *peercache.Cache
	search    *searchclient.Client
	debouncer *concurrency.Debouncer
}

// NewHandlers builds a Handlers ready for dispatcher registration.
func NewHandlers(idx *indexer.Indexer, peers *peercache.Cache, search *searchclient.Client, debouncer *concurrency.Debouncer) *Handlers {
	return &Handlers{idx: idx, peers: peers, search: search, debouncer: debouncer}
}

// Register attaches every handler to dispatcher.
func (h *Handlers) Register(dispatcher tg.UpdateDispatcher) {
	dispatcher.OnNewMessage(h.OnNewMessage)
	dispatcher.OnNewChannelMessage(h.OnNewChannelMessage)
	dispatcher.OnEditMessage(h.OnEditMessage)
	dispatcher.OnEditChannelMessage(h.OnEditChannelMessage)
	dispatcher.OnDeleteMessages(h.OnDeleteMessages)
	dispatcher.OnDeleteChannelMessages(h.OnDeleteChannelMessages)
}

func (h *Handlers) OnNewMessage(ctx context.Context, entities tg.Entities, u *tg.UpdateNewMessage) error {
	msg, ok := u.Message.(*tg.Message)
	if !ok {
		return nil
	}
	h.index(msg, entities)
	return nil
}

func (h *Handlers) OnNewChannelMessage(ctx context.Context, entities tg.Entities, u *tg.UpdateNewChannelMessage) error {
	msg, ok := u.Message.(*tg.Message)
	if !ok {
		return nil
	}
	h.index(msg, entities)
	return nil
}

func (h *Handlers) OnEditMessage(ctx context.Context, entities tg.Entities, u *tg.UpdateEditMessage) error {
	msg, ok := u.Message.(*tg.Message)
	if !ok {
		return nil
	}
	h.debouncer.Do(msg.ID, func() {
		h.index(msg, entities)
	})
	return nil
}

func (h *Handlers) OnEditChannelMessage(ctx context.Context, entities tg.Entities, u *tg.UpdateEditChannelMessage) error {
	msg, ok := u.Message.(*tg.Message)
	if !ok {
		return nil
	}
	h.debouncer.Do(msg.ID, func() {
		h.index(msg, entities)
	})
	return nil
}

// OnDeleteChannelMessages soft-deletes each referenced message.
// Channel deletes carry the owning channel id, so every message can be
// addressed precisely.
func (h *Handlers) OnDeleteChannelMessages(ctx context.Context, entities tg.Entities, u *tg.UpdateDeleteChannelMessages) error {
	for _, id := range u.Messages {
		h.softDelete(u.ChannelID, id)
	}
	return nil
}

// OnDeleteMessages handles plain message deletes. MTProto's
// updateDeleteMessages does not carry the owning peer — the protocol
// itself cannot say which chat a deleted message id belonged to — so
// these deletes cannot be mapped to a composite (chat_id, message_id)
// and are logged rather than applied.
func (h *Handlers) OnDeleteMessages(ctx context.Context, entities tg.Entities, u *tg.UpdateDeleteMessages) error {
	logging.Warnf("ingestapp: %d message(s) deleted without a resolvable chat id, skipping soft-delete", len(u.Messages))
	return nil
}

func (h *Handlers) index(msg *tg.Message, entities tg.Entities) {
	chatID := document.PeerID(msg.PeerID)
	chatInfo := h.chatInfo(msg.PeerID, chatID, entities)

	doc := document.FromUpstreamMessage(msg, entities, chatInfo, time.Now())
	h.idx.Upsert(doc)
}

// chatInfo resolves the chat's cached metadata, refreshing the cache
// from entities when the update itself carries fresher data.
func (h *Handlers) chatInfo(peer tg.PeerClass, chatID int64, entities tg.Entities) document.ChatInfo {
	if _, e, ok := resolveAndCache(h.peers, peer, entities); ok {
		return e.ChatInfo()
	}
	if cached, ok := h.peers.Get(chatID); ok {
		return cached.ChatInfo()
	}
	return document.ChatInfo{}
}

func resolveAndCache(peers *peercache.Cache, peer tg.PeerClass, entities tg.Entities) (int64, peercache.Entry, bool) {
	id, entry, ok := peercache.EntryFromPeer(peer, entities)
	if !ok {
		return id, entry, false
	}
	if err := peers.Put(id, entry); err != nil {
		logging.Warnf("ingestapp: cache peer %d: %v", id, err)
	}
	return id, entry, true
}

func (h *Handlers) softDelete(chatID int64, messageID int) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := h.search.SoftDelete(ctx, searchclient.SoftDeleteRequest{ChatID: chatID, MessageID: messageID}); err != nil {
		logging.Warnf("ingestapp: soft-delete %d/%d: %v", chatID, messageID, err)
	}
}
