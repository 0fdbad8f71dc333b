package privacy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesFileWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "privacy.json")
	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestBlockUnblockRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "privacy.json")
	s, err := Open(path)
	require.NoError(t, err)

	added, err := s.Block(42)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, s.IsBlocked(42))

	addedAgain, err := s.Block(42)
	require.NoError(t, err)
	assert.False(t, addedAgain)

	removed, err := s.Unblock(42)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, s.IsBlocked(42))

	removedAgain, err := s.Unblock(42)
	require.NoError(t, err)
	assert.False(t, removedAgain)
}

func TestBlockPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "privacy.json")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Block(7)
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.True(t, reopened.IsBlocked(7))
}

func TestOpenRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "privacy.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())
}

func TestSnapshotIsIndependentClone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "privacy.json")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Block(1)
	require.NoError(t, err)

	snap := s.Snapshot()
	_, err = s.Block(2)
	require.NoError(t, err)

	_, ok := snap[2]
	assert.False(t, ok)
}

func TestPersistedFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "privacy.json")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Block(9)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var ff fileFormat
	require.NoError(t, json.Unmarshal(data, &ff))
	assert.Equal(t, []int64{9}, ff.BlockedUsers)
	assert.Equal(t, fileVersion, ff.Version)
}

func TestFilterRemovesBlockedSenders(t *testing.T) {
	hits := []document.Message{
		{MessageID: 1, FromUser: document.User{ID: 10}},
		{MessageID: 2, FromUser: document.User{ID: 20}},
		{MessageID: 3, FromUser: document.User{ID: 30}},
	}
	kept, removed := Filter(hits, map[int64]struct{}{20: {}})
	require.Len(t, kept, 2)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 10, int(kept[0].FromUser.ID))
	assert.Equal(t, 30, int(kept[1].FromUser.ID))
}

func TestFilterChecksSenderChatForChannelPosts(t *testing.T) {
	hits := []document.Message{
		{MessageID: 1, Chat: document.Chat{ID: 555, Type: document.ChatChannel}},
	}
	kept, removed := Filter(hits, map[int64]struct{}{555: {}})
	assert.Empty(t, kept)
	assert.Equal(t, 1, removed)
}

func TestFilterNoOpWithEmptyBlockedSet(t *testing.T) {
	hits := []document.Message{{MessageID: 1, FromUser: document.User{ID: 10}}}
	kept, removed := Filter(hits, nil)
	assert.Equal(t, hits, kept)
	assert.Equal(t, 0, removed)
}
