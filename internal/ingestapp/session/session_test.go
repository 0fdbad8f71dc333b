package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tdsession "github.com/gotd/td/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSessionMissingFileReturnsErrNotFound(t *testing.T) {
	fs := &FileStorage{Path: filepath.Join(t.TempDir(), "nested", "session.json")}
	_, err := fs.LoadSession(context.Background())
	assert.True(t, errors.Is(err, tdsession.ErrNotFound))
}

func TestStoreAndLoadSessionRoundTrips(t *testing.T) {
	fs := &FileStorage{Path: filepath.Join(t.TempDir(), "nested", "session.json")}

	require.NoError(t, fs.StoreSession(context.Background(), []byte(`{"dc":1}`)))

	data, err := fs.LoadSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"dc":1}`), data)
}
