package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gotd/td/telegram/updates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStorageSetAndGetState(t *testing.T) {
	s := NewStateStorage(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	require.NoError(t, s.SetState(ctx, 1, updates.State{Pts: 10, Qts: 1, Date: 100, Seq: 1}))

	st, ok, err := s.GetState(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, st.Pts)
}

func TestStateStoragePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	s1 := NewStateStorage(path)
	require.NoError(t, s1.SetState(ctx, 1, updates.State{Pts: 5}))

	s2 := NewStateStorage(path)
	st, ok, err := s2.GetState(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, st.Pts)
}

func TestSetPtsRequiresExistingState(t *testing.T) {
	s := NewStateStorage(filepath.Join(t.TempDir(), "state.json"))
	err := s.SetPts(context.Background(), 1, 7)
	assert.Error(t, err)
}

func TestChannelPtsRoundTrips(t *testing.T) {
	s := NewStateStorage(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()
	require.NoError(t, s.SetState(ctx, 1, updates.State{}))
	require.NoError(t, s.SetChannelPts(ctx, 1, 55, 9))

	pts, ok, err := s.GetChannelPts(ctx, 1, 55)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, pts)
}
