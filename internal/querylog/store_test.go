package querylog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "querylog.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLogQueryAndStatsForUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LogQuery(ctx, Entry{
		UserID:       10,
		ChatID:       100,
		ChatType:     "PRIVATE",
		Query:        "hello",
		ResultsCount: 3,
		PageNumber:   1,
		Timestamp:    time.Now(),
	}))
	require.NoError(t, s.LogQuery(ctx, Entry{
		UserID:       10,
		ChatID:       100,
		ChatType:     "PRIVATE",
		Query:        "world",
		ResultsCount: 0,
		PageNumber:   1,
		Timestamp:    time.Now(),
	}))

	stats, err := s.StatsForUser(ctx, 10, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.QueryCount)
	assert.False(t, stats.LastQueryAt.IsZero())
}

func TestStatsForUserExcludesOlderThanSince(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LogQuery(ctx, Entry{
		UserID:       20,
		ChatID:       1,
		ChatType:     "PRIVATE",
		Query:        "old",
		ResultsCount: 1,
		PageNumber:   1,
		Timestamp:    time.Now().Add(-48 * time.Hour),
	}))

	stats, err := s.StatsForUser(ctx, 20, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.QueryCount)
}

func TestPutAndGetSettingRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSetting(ctx, "search.page_size", "20", ValueInt, "default page size", 1))

	st, err := s.GetSetting(ctx, "search.page_size")
	require.NoError(t, err)
	assert.Equal(t, "20", st.Value)
	assert.Equal(t, ValueInt, st.Type)
	assert.Equal(t, int64(1), st.UpdatedBy)
}

func TestGetSettingNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetSetting(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSettingNotFound)
}

func TestGetSettingBoolFallsBackToDefault(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.GetSettingBool(ctx, "feature.flag", true)
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, s.PutSetting(ctx, "feature.flag", "false", ValueBool, "", 0))
	v, err = s.GetSettingBool(ctx, "feature.flag", true)
	require.NoError(t, err)
	assert.False(t, v)
}

func TestPutSettingOverwritesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSetting(ctx, "k", "1", ValueInt, "first", 1))
	require.NoError(t, s.PutSetting(ctx, "k", "2", ValueInt, "second", 2))

	st, err := s.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "2", st.Value)
	assert.Equal(t, "second", st.Description)
	assert.Equal(t, int64(2), st.UpdatedBy)
}
