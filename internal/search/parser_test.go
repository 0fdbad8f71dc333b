package search

import (
	"testing"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandPlainKeyword(t *testing.T) {
	q, err := ParseCommand("hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", q.Keyword)
	assert.Equal(t, ModeFuzzy, q.Mode)
	assert.Equal(t, 1, q.Page)
}

func TestParseCommandQuotedIsExact(t *testing.T) {
	q, err := ParseCommand(`"exact phrase"`)
	require.NoError(t, err)
	assert.Equal(t, "exact phrase", q.Keyword)
	assert.Equal(t, ModeExact, q.Mode)
}

func TestParseCommandExactModeFlag(t *testing.T) {
	q, err := ParseCommand("-m=e keyword")
	require.NoError(t, err)
	assert.Equal(t, ModeExact, q.Mode)
	assert.Equal(t, "keyword", q.Keyword)
}

func TestParseCommandChatTypeFlag(t *testing.T) {
	q, err := ParseCommand("-t=GROUP keyword")
	require.NoError(t, err)
	assert.Equal(t, document.ChatGroup, q.ChatType)
	assert.Equal(t, "keyword", q.Keyword)
}

func TestParseCommandUserFlag(t *testing.T) {
	q, err := ParseCommand("-u=@alice keyword")
	require.NoError(t, err)
	assert.Equal(t, "@alice", q.UserFilter)
}

func TestParseCommandRejectsPageZero(t *testing.T) {
	_, err := ParseCommand("-p=0 keyword")
	require.Error(t, err)
	var pageErr *ErrInvalidPage
	require.ErrorAs(t, err, &pageErr)
}

func TestParseCommandRejectsPageBeyondMax(t *testing.T) {
	_, err := ParseCommand("-p=101 keyword")
	require.Error(t, err)
}

func TestParseChatTypeShortcutRewritesToFlags(t *testing.T) {
	q, ok := ParseChatTypeShortcut("group", "@bob keyword")
	require.True(t, ok)
	assert.Equal(t, document.ChatGroup, q.ChatType)
	assert.Equal(t, "@bob", q.UserFilter)
	assert.Equal(t, "keyword", q.Keyword)
}

func TestParseChatTypeShortcutUnknownCommand(t *testing.T) {
	_, ok := ParseChatTypeShortcut("nonsense", "keyword")
	assert.False(t, ok)
}
