package search

import (
	"testing"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/ZhiShengYuan/SearchGram/internal/searchclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPageIncludesSenderChatAndText(t *testing.T) {
	resp := searchclient.SearchResponse{
		Hits: []document.Message{
			{
				MessageID: 5,
				Text:      "hello there",
				Chat:      document.Chat{ID: 100, Title: "Test Group", Username: "testgroup"},
				FromUser:  document.User{ID: 7, Username: "alice"},
				Date:      1700000000,
			},
		},
		TotalHits:  1,
		TotalPages: 1,
		Page:       1,
	}

	page := RenderPage(resp)
	assert.Contains(t, page.Body, "@alice")
	assert.Contains(t, page.Body, "Test Group")
	assert.Contains(t, page.Body, "tg://resolve?domain=testgroup")
	assert.Contains(t, page.Body, "hello there")
	assert.Nil(t, page.Keyboard)
	assert.False(t, page.Oversize)
}

func TestRenderPageEmptyHits(t *testing.T) {
	page := RenderPage(searchclient.SearchResponse{})
	assert.Equal(t, "No results found.", page.Body)
}

func TestRenderPageFirstPageShowsOnlyNext(t *testing.T) {
	resp := searchclient.SearchResponse{TotalPages: 3, Page: 1, Hits: []document.Message{{MessageID: 1}}}
	page := RenderPage(resp)
	require.NotNil(t, page.Keyboard)
	row := page.Keyboard.InlineKeyboard[0]
	require.Len(t, row, 1)
	assert.Equal(t, "n|2", *row[0].CallbackData)
}

func TestRenderPageMiddlePageShowsBoth(t *testing.T) {
	resp := searchclient.SearchResponse{TotalPages: 5, Page: 3, Hits: []document.Message{{MessageID: 1}}}
	page := RenderPage(resp)
	require.NotNil(t, page.Keyboard)
	row := page.Keyboard.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, "p|2", *row[0].CallbackData)
	assert.Equal(t, "n|4", *row[1].CallbackData)
}

func TestRenderPageLastPageShowsOnlyPrev(t *testing.T) {
	resp := searchclient.SearchResponse{TotalPages: 4, Page: 4, Hits: []document.Message{{MessageID: 1}}}
	page := RenderPage(resp)
	require.NotNil(t, page.Keyboard)
	row := page.Keyboard.InlineKeyboard[0]
	require.Len(t, row, 1)
	assert.Equal(t, "p|3", *row[0].CallbackData)
}

func TestRenderPageOversizeFlagsLargeBody(t *testing.T) {
	hits := make([]document.Message, 0, 200)
	for i := 0; i < 200; i++ {
		hits = append(hits, document.Message{MessageID: i, Text: "a fairly long line of search result text to pad things out"})
	}
	resp := searchclient.SearchResponse{Hits: hits, TotalPages: 1, Page: 1}
	page := RenderPage(resp)
	assert.True(t, page.Oversize)
}

func TestDeepLinkFallsBackToSenderThenChannel(t *testing.T) {
	withSender := document.Message{FromUser: document.User{ID: 42}}
	assert.Equal(t, "tg://user?id=42", deepLink(withSender))

	channelOnly := document.Message{Chat: document.Chat{ID: -1001234567890}, MessageID: 9}
	assert.Contains(t, deepLink(channelOnly), "tg://privatepost?channel=1234567890")
}
