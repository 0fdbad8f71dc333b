package ingestapp

import (
	"errors"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhiShengYuan/SearchGram/internal/syncmanager"
)

func TestOffsetIDOrMaxTreatsZeroAsStartFromNewest(t *testing.T) {
	assert.Equal(t, 0, offsetIDOrMax(0))
	assert.Equal(t, 42, offsetIDOrMax(42))
}

func TestBuildEntitiesSplitsChatsAndChannels(t *testing.T) {
	users := []tg.UserClass{&tg.User{ID: 1, Username: "alice"}}
	chats := []tg.ChatClass{&tg.Chat{ID: 2, Title: "Group"}, &tg.Channel{ID: 3, Title: "Channel"}}

	e := buildEntities(users, chats)
	assert.Equal(t, "alice", e.Users[1].Username)
	assert.Equal(t, "Group", e.Chats[2].Title)
	assert.Equal(t, "Channel", e.Channels[3].Title)
}

func TestUnpackHistoryDetectsMorePagesFromSlice(t *testing.T) {
	res := &tg.MessagesMessagesSlice{
		Messages: []tg.MessageClass{&tg.Message{ID: 1}},
		Count:    10,
	}
	msgs, _, _, hasMore := unpackHistory(res)
	assert.Len(t, msgs, 1)
	assert.True(t, hasMore)
}

func TestUnpackHistoryFullResultHasNoMore(t *testing.T) {
	res := &tg.MessagesMessages{Messages: []tg.MessageClass{&tg.Message{ID: 1}}}
	_, _, _, hasMore := unpackHistory(res)
	assert.False(t, hasMore)
}

func TestClassifyUpstreamErrorFloodWaitReturnsRateLimited(t *testing.T) {
	err := &tgerr.Error{Code: 420, Type: "FLOOD_WAIT", Argument: 30, Message: "FLOOD_WAIT_30"}
	classified := classifyUpstreamError(err)
	rl, ok := classified.(syncmanager.RateLimited)
	require.True(t, ok, "expected RateLimited, got %T: %v", classified, classified)
	assert.Equal(t, 30, rl.WaitSeconds)
}

func TestClassifyUpstreamErrorForbiddenReturnsPermissionDenied(t *testing.T) {
	err := &tgerr.Error{Code: 403, Type: "CHAT_FORBIDDEN", Message: "CHAT_FORBIDDEN"}
	classified := classifyUpstreamError(err)
	ue, ok := classified.(syncmanager.UpstreamError)
	assert.True(t, ok)
	assert.Equal(t, syncmanager.KindPermissionDenied, ue.Kind)
}

func TestClassifyUpstreamErrorGenericIsTransient(t *testing.T) {
	classified := classifyUpstreamError(errors.New("boom"))
	ue, ok := classified.(syncmanager.UpstreamError)
	assert.True(t, ok)
	assert.Equal(t, syncmanager.KindTransient, ue.Kind)
}
