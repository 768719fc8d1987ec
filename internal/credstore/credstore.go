// Package credstore persists the session credentials: access token, refresh
// token, and the authenticated identity record. It prefers the system
// keychain and falls back to a locked JSON file.
//
// The three values are stored as independent keyed entries. Save writes the
// access token last so that a reader requiring all three entries fails closed
// if a write is interrupted partway.
package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"github.com/zalando/go-keyring"
)

const serviceName = "shopctl"

// Entry keys. These are the fixed names the session state is stored under.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyIdentity     = "identity"
)

// Identity is the authenticated principal and its tenant scope.
// Immutable once loaded; replaced wholesale on re-login.
type Identity struct {
	UserID      string   `json:"user_id"`
	StoreID     string   `json:"store_id"`
	BranchID    string   `json:"branch_id,omitempty"` // empty means store-wide scope
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// Credentials is the live session record. A session is live only when all
// three fields are present and non-empty.
type Credentials struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

// Store handles credential storage, preferring the system keychain.
type Store struct {
	useKeyring  bool
	fallbackDir string
}

// NewStore creates a credential store. Set SHOPCTL_NO_KEYRING to force the
// file backend (tests, CI, headless servers).
func NewStore(fallbackDir string) *Store {
	if os.Getenv("SHOPCTL_NO_KEYRING") != "" {
		return &Store{useKeyring: false, fallbackDir: fallbackDir}
	}

	// Test if keyring is available
	testKey := "shopctl::probe"
	err := keyring.Set(serviceName, testKey, "probe")
	if err == nil {
		_ = keyring.Delete(serviceName, testKey) // Best-effort cleanup
		return &Store{useKeyring: true, fallbackDir: fallbackDir}
	}
	fmt.Fprintf(os.Stderr, "warning: system keyring unavailable, credentials stored in plaintext at %s\n",
		filepath.Join(fallbackDir, "credentials.json"))
	return &Store{useKeyring: false, fallbackDir: fallbackDir}
}

// UsingKeyring returns true if the store is using the system keyring.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}

// Save persists all three session entries. The access token is written last:
// a concurrent Load observing a partial write sees a missing entry and
// reports no session rather than a half-written one.
func (s *Store) Save(creds *Credentials) error {
	identityJSON, err := json.Marshal(creds.Identity)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}

	entries := [][2]string{
		{keyIdentity, string(identityJSON)},
		{keyRefreshToken, creds.RefreshToken},
		{keyAccessToken, creds.AccessToken},
	}

	if s.useKeyring {
		for _, e := range entries {
			if err := keyring.Set(serviceName, e[0], e[1]); err != nil {
				return fmt.Errorf("saving %s: %w", e[0], err)
			}
		}
		return nil
	}
	return s.saveToFile(entries)
}

// Load returns the stored credentials, or nil when no live session exists.
// A session is live only when all three entries are present and non-empty.
func (s *Store) Load() *Credentials {
	var access, refresh, identity string
	if s.useKeyring {
		access, _ = keyring.Get(serviceName, keyAccessToken)
		refresh, _ = keyring.Get(serviceName, keyRefreshToken)
		identity, _ = keyring.Get(serviceName, keyIdentity)
	} else {
		all, err := s.loadAllFromFile()
		if err != nil {
			return nil
		}
		access, refresh, identity = all[keyAccessToken], all[keyRefreshToken], all[keyIdentity]
	}

	if access == "" || refresh == "" || identity == "" {
		return nil
	}

	var id Identity
	if err := json.Unmarshal([]byte(identity), &id); err != nil {
		return nil
	}

	return &Credentials{
		Identity:     id,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}

// Clear removes all three entries. Idempotent: clearing an empty store
// succeeds.
func (s *Store) Clear() error {
	if s.useKeyring {
		for _, key := range []string{keyAccessToken, keyRefreshToken, keyIdentity} {
			if err := keyring.Delete(serviceName, key); err != nil && err != keyring.ErrNotFound {
				return fmt.Errorf("clearing %s: %w", key, err)
			}
		}
		return nil
	}

	lock := s.acquireLock()
	defer releaseLock(lock)

	err := os.Remove(s.credentialsPath())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// File fallback.

func (s *Store) credentialsPath() string {
	return filepath.Join(s.fallbackDir, "credentials.json")
}

func (s *Store) lockPath() string {
	return filepath.Join(s.fallbackDir, ".credentials.lock")
}

// lockTimeout bounds how long a CLI invocation waits for the credentials
// file lock. On timeout we proceed without the lock: a brief race window is
// preferable to a hung command when another process crashed holding it.
const lockTimeout = 100 * time.Millisecond

func (s *Store) acquireLock() *flock.Flock {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return nil
	}

	fl := flock.New(s.lockPath())

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil || !locked {
		return nil
	}
	return fl
}

func releaseLock(fl *flock.Flock) {
	if fl != nil {
		_ = fl.Unlock()
	}
}

func (s *Store) loadAllFromFile() (map[string]string, error) {
	data, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	var all map[string]string
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (s *Store) saveToFile(entries [][2]string) error {
	lock := s.acquireLock()
	defer releaseLock(lock)

	all, err := s.loadAllFromFile()
	if err != nil {
		all = make(map[string]string)
	}
	for _, e := range entries {
		all[e[0]] = e[1]
	}

	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write with randomized temp file name
	tmpFile, err := os.CreateTemp(s.fallbackDir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	// Unix: rename atomically replaces the destination.
	// Windows: rename fails when destination exists; remove then retry.
	destPath := s.credentialsPath()
	if err := os.Rename(tmpPath, destPath); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(destPath)
			return os.Rename(tmpPath, destPath)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}
