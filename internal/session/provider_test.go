package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/bus"
	"github.com/pairchat/pairchat/internal/directory"
	"github.com/pairchat/pairchat/internal/sessioncache"
)

func testProvider(t *testing.T) (*Provider, *directory.DB, string) {
	t.Helper()
	tmpDir := t.TempDir()

	db, err := directory.Open(filepath.Join(tmpDir, "directory.db"), bus.New())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cachePath := filepath.Join(tmpDir, "userstore.toml")
	cache, err := sessioncache.Open(cachePath)
	if err != nil {
		t.Fatal(err)
	}

	return NewProvider(db, cache, zap.NewNop()), db, cachePath
}

func TestSignupAndLogin(t *testing.T) {
	p, _, _ := testProvider(t)

	if err := p.Signup("alice", "alice@example.com", "111", "pw"); err != nil {
		t.Fatal(err)
	}

	u, err := p.Login("alice@example.com", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "alice" {
		t.Errorf("name = %q, want alice", u.Name)
	}
	if !p.LoggedIn() {
		t.Error("LoggedIn() = false after login")
	}
	if p.CurrentUserID() != u.ID {
		t.Errorf("CurrentUserID() = %q, want %q", p.CurrentUserID(), u.ID)
	}
}

func TestLoginByMobile(t *testing.T) {
	p, _, _ := testProvider(t)
	if err := p.Signup("alice", "alice@example.com", "111", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Login("111", "pw"); err != nil {
		t.Fatal(err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	p, _, _ := testProvider(t)
	if err := p.Signup("alice", "alice@example.com", "111", "pw"); err != nil {
		t.Fatal(err)
	}

	_, err := p.Login("alice@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("error = %v, want ErrInvalidCredentials", err)
	}
	if p.LoggedIn() {
		t.Error("LoggedIn() = true after failed login")
	}
}

func TestSessionRestoredAcrossRestart(t *testing.T) {
	p, db, cachePath := testProvider(t)
	if err := p.Signup("alice", "alice@example.com", "111", "pw"); err != nil {
		t.Fatal(err)
	}
	u, err := p.Login("alice@example.com", "pw")
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a restart: new cache handle, new provider.
	cache, err := sessioncache.Open(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	p2 := NewProvider(db, cache, zap.NewNop())
	if !p2.LoggedIn() {
		t.Fatal("identity not restored from cache")
	}
	if p2.CurrentUserID() != u.ID {
		t.Errorf("restored id = %q, want %q", p2.CurrentUserID(), u.ID)
	}
	if p2.CurrentUser().Name != "alice" {
		t.Errorf("restored name = %q, want alice", p2.CurrentUser().Name)
	}
}

func TestLogoutClearsIdentity(t *testing.T) {
	p, db, cachePath := testProvider(t)
	if err := p.Signup("alice", "alice@example.com", "111", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Login("alice@example.com", "pw"); err != nil {
		t.Fatal(err)
	}

	if err := p.Logout(); err != nil {
		t.Fatal(err)
	}
	if p.LoggedIn() {
		t.Error("LoggedIn() = true after logout")
	}

	cache, err := sessioncache.Open(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	p2 := NewProvider(db, cache, zap.NewNop())
	if p2.LoggedIn() {
		t.Error("identity survived logout on disk")
	}
}

func TestLoginAbortsWhenCacheUnwritable(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := directory.Open(filepath.Join(tmpDir, "directory.db"), bus.New())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// The cache lives under a directory that does not exist yet, so Open
	// succeeds with an empty store.
	blocker := filepath.Join(tmpDir, "cache")
	cache, err := sessioncache.Open(filepath.Join(blocker, "userstore.toml"))
	if err != nil {
		t.Fatal(err)
	}

	p := NewProvider(db, cache, zap.NewNop())
	if err := p.Signup("alice", "alice@example.com", "111", "pw"); err != nil {
		t.Fatal(err)
	}

	// Turn the cache's parent path into a regular file: every flush now
	// fails, so the session cannot be persisted.
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Login("alice@example.com", "pw"); err == nil {
		t.Fatal("Login succeeded although the session could not be persisted")
	}
	if p.LoggedIn() {
		t.Error("LoggedIn() = true after an aborted login")
	}
}

func TestSignupValidation(t *testing.T) {
	p, _, _ := testProvider(t)
	if err := p.Signup("", "a@x", "1", "pw"); err == nil {
		t.Error("Signup with empty name should fail")
	}
	if err := p.Signup("alice", "a@x", "1", ""); err == nil {
		t.Error("Signup with empty password should fail")
	}
}
