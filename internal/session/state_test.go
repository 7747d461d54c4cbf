package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session_data.json"))
	state, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session_data.json")
	store := NewStore(path)

	saved := &State{
		Cookies: []*proto.NetworkCookie{
			{Name: "sid", Value: "abc123", Domain: "portal.example.test", Path: "/", HTTPOnly: true},
		},
		Origins: []Origin{
			{Origin: "https://portal.example.test", LocalStorage: map[string]string{"auth_token": "xyz"}},
		},
		SavedAt: time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Len(t, loaded.Cookies, 1)
	assert.Equal(t, "sid", loaded.Cookies[0].Name)
	assert.Equal(t, "abc123", loaded.Cookies[0].Value)
	assert.Equal(t, saved.SavedAt, loaded.SavedAt.UTC())
	assert.Equal(t, map[string]string{"auth_token": "xyz"}, loaded.Storage("https://portal.example.test"))
	assert.Nil(t, loaded.Storage("https://other.example.test"))
}

func TestStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session_data.json")
	require.NoError(t, NewStore(path).Save(&State{}))

	// Clobber with junk and expect a parse error, not a panic.
	store := NewStore(path)
	writeFile(t, path, "{not json")
	_, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse session file")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestStateEmpty(t *testing.T) {
	var nilState *State
	assert.True(t, nilState.Empty())
	assert.True(t, (&State{}).Empty())
	assert.False(t, (&State{Cookies: []*proto.NetworkCookie{{Name: "sid"}}}).Empty())
	assert.False(t, (&State{Origins: []Origin{{Origin: "https://a"}}}).Empty())
}

func TestLoginErrorMessage(t *testing.T) {
	err := &LoginError{Reason: "credentials rejected"}
	assert.Equal(t, "login failed: credentials rejected", err.Error())
	assert.Nil(t, err.Unwrap())

	wrapped := &LoginError{Reason: "email input never appeared", Err: assert.AnError}
	assert.Contains(t, wrapped.Error(), "email input never appeared")
	assert.Equal(t, assert.AnError, wrapped.Unwrap())
}
