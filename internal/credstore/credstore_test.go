package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileStore(t *testing.T) *Store {
	t.Helper()
	return &Store{useKeyring: false, fallbackDir: t.TempDir()}
}

func testCreds() *Credentials {
	return &Credentials{
		Identity: Identity{
			UserID:      "u-17",
			StoreID:     "s-5",
			BranchID:    "b-2",
			Role:        "manager",
			Permissions: []string{"orders.read", "orders.update"},
		},
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	store := fileStore(t)

	require.NoError(t, store.Save(testCreds()), "Save failed")

	loaded := store.Load()
	require.NotNil(t, loaded, "Load returned nil after Save")

	assert.Equal(t, "at-1", loaded.AccessToken)
	assert.Equal(t, "rt-1", loaded.RefreshToken)
	assert.Equal(t, "u-17", loaded.Identity.UserID)
	assert.Equal(t, "s-5", loaded.Identity.StoreID)
	assert.Equal(t, "b-2", loaded.Identity.BranchID)
	assert.Equal(t, "manager", loaded.Identity.Role)
	assert.Equal(t, []string{"orders.read", "orders.update"}, loaded.Identity.Permissions)
}

func TestLoadEmptyStore(t *testing.T) {
	store := fileStore(t)
	assert.Nil(t, store.Load(), "Load on an empty store should return nil")
}

func TestLoadPartialSession(t *testing.T) {
	store := fileStore(t)

	// Write only two of the three entries, simulating an interrupted save.
	entries := [][2]string{
		{keyIdentity, `{"user_id":"u-1","store_id":"s-1","role":"admin"}`},
		{keyRefreshToken, "rt-1"},
	}
	require.NoError(t, store.saveToFile(entries))

	assert.Nil(t, store.Load(), "Load must fail closed on a partial session")
}

func TestLoadEmptyTokenValue(t *testing.T) {
	store := fileStore(t)

	creds := testCreds()
	creds.AccessToken = ""
	require.NoError(t, store.Save(creds))

	assert.Nil(t, store.Load(), "empty access token is not a live session")
}

func TestClear(t *testing.T) {
	store := fileStore(t)

	require.NoError(t, store.Save(testCreds()))
	require.NotNil(t, store.Load())

	require.NoError(t, store.Clear(), "Clear failed")
	assert.Nil(t, store.Load(), "Load after Clear should return nil")

	// Idempotent
	require.NoError(t, store.Clear(), "second Clear should succeed")
}

func TestSaveOverwritesAccessTokenOnly(t *testing.T) {
	store := fileStore(t)
	require.NoError(t, store.Save(testCreds()))

	updated := store.Load()
	require.NotNil(t, updated)
	updated.AccessToken = "at-2"
	require.NoError(t, store.Save(updated))

	loaded := store.Load()
	require.NotNil(t, loaded)
	assert.Equal(t, "at-2", loaded.AccessToken)
	assert.Equal(t, "rt-1", loaded.RefreshToken, "refresh token must survive")
	assert.Equal(t, "u-17", loaded.Identity.UserID, "identity must survive")
}

func TestFilePermissions(t *testing.T) {
	store := fileStore(t)
	require.NoError(t, store.Save(testCreds()))

	info, err := os.Stat(filepath.Join(store.fallbackDir, "credentials.json"))
	require.NoError(t, err, "credentials file not created")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "file permissions mismatch")
}

func TestFileHoldsThreeKeyedEntries(t *testing.T) {
	store := fileStore(t)
	require.NoError(t, store.Save(testCreds()))

	data, err := os.ReadFile(filepath.Join(store.fallbackDir, "credentials.json"))
	require.NoError(t, err)

	var all map[string]string
	require.NoError(t, json.Unmarshal(data, &all))

	assert.Contains(t, all, "access_token")
	assert.Contains(t, all, "refresh_token")
	assert.Contains(t, all, "identity")
}

func TestNewStoreRespectsNoKeyringEnv(t *testing.T) {
	t.Setenv("SHOPCTL_NO_KEYRING", "1")

	store := NewStore(t.TempDir())
	require.NotNil(t, store)
	assert.False(t, store.UsingKeyring(), "SHOPCTL_NO_KEYRING should force the file backend")
}

func TestIdentityJSON(t *testing.T) {
	id := Identity{
		UserID:      "u-1",
		StoreID:     "s-1",
		Role:        "owner",
		Permissions: []string{"stores.manage"},
	}

	data, err := json.Marshal(id)
	require.NoError(t, err, "Marshal failed")

	var loaded Identity
	require.NoError(t, json.Unmarshal(data, &loaded), "Unmarshal failed")

	assert.Equal(t, id, loaded)
	assert.Empty(t, loaded.BranchID, "absent branch means store-wide scope")
}
