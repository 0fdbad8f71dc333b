package ingestapp

import (
	"context"
	"errors"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/ingestapp/peercache"
	"github.com/ZhiShengYuan/SearchGram/internal/syncmanager"
)

// historyFetcher implements syncmanager.HistoryFetcher over the live
// MTProto client, grounded on the messages.getHistory walk gotd's own
// examples use for backfill: each call re-resolves the InputPeerClass
// from peercache rather than caching it, since a chat's access hash
// can legitimately change between sync runs.
type historyFetcher struct {
	api   *tg.Client
	peers *peercache.Cache
}

func newHistoryFetcher(api *tg.Client, peers *peercache.Cache) *historyFetcher {
	return &historyFetcher{api: api, peers: peers}
}

const historyPageGuard = 200 // gotd/messages.getHistory hard server-side cap per request

func (f *historyFetcher) resolvePeer(chatID int64) (tg.InputPeerClass, peercache.Entry, error) {
	entry, ok := f.peers.Get(chatID)
	if !ok {
		return nil, entry, syncmanager.UpstreamError{
			Kind:   syncmanager.KindPermissionDenied,
			Detail: "chat not in peer cache; it must appear in a live update before it can be synced",
		}
	}
	peer, err := entry.InputPeer(chatID)
	if err != nil {
		return nil, entry, syncmanager.UpstreamError{Kind: syncmanager.KindPermissionDenied, Detail: err.Error()}
	}
	return peer, entry, nil
}

// FetchHistory pages backwards from offsetID (exclusive), newest
// messages first, matching the Sync Manager's backward walk (§4.2): the
// manager tracks LastMessageID as the oldest message id already indexed
// and asks for the next page of messages older than it.
func (f *historyFetcher) FetchHistory(chatID int64, offsetID int, limit int) ([]document.Message, bool, error) {
	peer, entry, err := f.resolvePeer(chatID)
	if err != nil {
		return nil, false, err
	}
	if limit <= 0 || limit > historyPageGuard {
		limit = historyPageGuard
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	res, err := f.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     peer,
		OffsetID: offsetIDOrMax(offsetID),
		Limit:    limit,
	})
	if err != nil {
		return nil, false, classifyUpstreamError(err)
	}

	msgs, users, chats, hasMore := unpackHistory(res)
	entities := buildEntities(users, chats)
	chatInfo := entry.ChatInfo()

	observedAt := time.Now()
	out := make([]document.Message, 0, len(msgs))
	for _, m := range msgs {
		tm, ok := m.(*tg.Message)
		if !ok {
			continue // service/empty messages carry no searchable text
		}
		out = append(out, document.FromUpstreamMessage(tm, entities, chatInfo, observedAt))
	}
	return out, hasMore, nil
}

// offsetIDOrMax treats offsetID==0 (no prior progress) as "start from
// the newest message", matching messages.getHistory's own convention.
func offsetIDOrMax(offsetID int) int {
	if offsetID <= 0 {
		return 0
	}
	return offsetID
}

// TotalCount asks for a single message and reads the server-reported
// total, used once per chat at the start of a sync run (§4.2).
func (f *historyFetcher) TotalCount(chatID int64) (int64, error) {
	peer, _, err := f.resolvePeer(chatID)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := f.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: 1,
	})
	if err != nil {
		return 0, classifyUpstreamError(err)
	}

	switch v := res.(type) {
	case *tg.MessagesMessagesSlice:
		return int64(v.Count), nil
	case *tg.MessagesChannelMessages:
		return int64(v.Count), nil
	case *tg.MessagesMessages:
		return int64(len(v.Messages)), nil
	default:
		return 0, nil
	}
}

func unpackHistory(res tg.MessagesMessagesClass) (msgs []tg.MessageClass, users []tg.UserClass, chats []tg.ChatClass, hasMore bool) {
	switch v := res.(type) {
	case *tg.MessagesMessagesSlice:
		return v.Messages, v.Users, v.Chats, len(v.Messages) > 0 && v.Count > len(v.Messages)
	case *tg.MessagesChannelMessages:
		return v.Messages, v.Users, v.Chats, len(v.Messages) > 0 && v.Count > len(v.Messages)
	case *tg.MessagesMessages:
		return v.Messages, v.Users, v.Chats, false
	default:
		return nil, nil, nil, false
	}
}

func buildEntities(users []tg.UserClass, chats []tg.ChatClass) tg.Entities {
	e := tg.Entities{
		Users:    make(map[int64]*tg.User, len(users)),
		Chats:    make(map[int64]*tg.Chat, len(chats)),
		Channels: make(map[int64]*tg.Channel, len(chats)),
	}
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			e.Users[user.ID] = user
		}
	}
	for _, c := range chats {
		switch v := c.(type) {
		case *tg.Chat:
			e.Chats[v.ID] = v
		case *tg.Channel:
			e.Channels[v.ID] = v
		}
	}
	return e
}

// classifyUpstreamError maps a gotd RPC error to the typed errors the
// Sync Manager's retry loop expects (§4.2): FLOOD_WAIT becomes a wait
// hint, access errors become a permanent per-chat failure, everything
// else is a transient error subject to the configured retry budget.
func classifyUpstreamError(err error) error {
	var rpcErr *tgerr.Error
	if !errors.As(err, &rpcErr) {
		return syncmanager.UpstreamError{Kind: syncmanager.KindTransient, Detail: err.Error()}
	}
	if tgerr.Is(err, "FLOOD_WAIT") {
		return syncmanager.RateLimited{WaitSeconds: rpcErr.Argument}
	}
	switch {
	case rpcErr.Code == 403,
		tgerr.Is(err, "CHANNEL_PRIVATE"),
		tgerr.Is(err, "CHAT_FORBIDDEN"),
		tgerr.Is(err, "USER_DEACTIVATED_BAN"),
		tgerr.Is(err, "CHAT_ADMIN_REQUIRED"):
		return syncmanager.UpstreamError{Kind: syncmanager.KindPermissionDenied, Detail: rpcErr.Message}
	default:
		return syncmanager.UpstreamError{Kind: syncmanager.KindTransient, Detail: rpcErr.Message}
	}
}
