// Package session holds the logged-in identity for the running client.
//
// The provider is constructed once at startup and injected into every
// component that needs identity; there is no ambient global.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairchat/pairchat/internal/directory"
	"github.com/pairchat/pairchat/internal/sessioncache"
)

// ErrInvalidCredentials is returned by Login when no client matches the
// given identity and password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is the restored or freshly logged-in identity.
type User struct {
	ID     string
	Name   string
	Email  string
	Mobile string
}

// Provider manages signup, login, logout and exposes the current identity.
type Provider struct {
	db     *directory.DB
	cache  *sessioncache.Store
	logger *zap.Logger

	mu      sync.RWMutex
	current *User
}

// NewProvider creates a provider and restores any persisted identity from
// the session cache.
func NewProvider(db *directory.DB, cache *sessioncache.Store, logger *zap.Logger) *Provider {
	p := &Provider{db: db, cache: cache, logger: logger}
	if id, ok := cache.Get(sessioncache.KeyUserID); ok && id != "" {
		name, _ := cache.Get(sessioncache.KeyUserName)
		email, _ := cache.Get(sessioncache.KeyUserEmail)
		mobile, _ := cache.Get(sessioncache.KeyUserMobile)
		p.current = &User{ID: id, Name: name, Email: email, Mobile: mobile}
	}
	return p
}

// NewProviderWithoutCache creates a provider that never persists identity.
// Headless tooling uses this; the session does not survive the process.
func NewProviderWithoutCache(db *directory.DB, logger *zap.Logger) *Provider {
	return &Provider{db: db, logger: logger}
}

// Signup registers a new client in the directory. It does not log in.
func (p *Provider) Signup(name, email, mobile, password string) error {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return errors.New("name and password are required")
	}
	c := &directory.Client{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     strings.TrimSpace(email),
		Mobile:    strings.TrimSpace(mobile),
		Password:  password,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := p.db.InsertClient(c); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	p.logger.Info("client registered", zap.String("client_id", c.ID), zap.String("name", c.Name))
	return nil
}

// Login authenticates against the directory and persists the identity in
// the session cache. A cache write failure aborts the login: the session
// would not survive a restart, so the user must be told now.
func (p *Provider) Login(emailOrMobile, password string) (*User, error) {
	c, err := p.db.FindClientByLogin(emailOrMobile, password)
	if err != nil {
		return nil, fmt.Errorf("login lookup: %w", err)
	}
	if c == nil {
		return nil, ErrInvalidCredentials
	}

	if err := p.persist(c); err != nil {
		p.logger.Error("failed to persist session", zap.Error(err))
		return nil, fmt.Errorf("persist session: %w", err)
	}

	u := &User{ID: c.ID, Name: c.Name, Email: c.Email, Mobile: c.Mobile}
	p.mu.Lock()
	p.current = u
	p.mu.Unlock()

	p.logger.Info("logged in", zap.String("client_id", c.ID), zap.String("name", c.Name))
	return u, nil
}

func (p *Provider) persist(c *directory.Client) error {
	if p.cache == nil {
		return nil
	}
	pairs := []struct{ key, value string }{
		{sessioncache.KeyUserID, c.ID},
		{sessioncache.KeyUserName, c.Name},
		{sessioncache.KeyUserEmail, c.Email},
		{sessioncache.KeyUserMobile, c.Mobile},
	}
	for _, kv := range pairs {
		if err := p.cache.Set(kv.key, kv.value); err != nil {
			return err
		}
	}
	return nil
}

// Logout clears the persisted identity.
func (p *Provider) Logout() error {
	if p.cache == nil {
		p.mu.Lock()
		p.current = nil
		p.mu.Unlock()
		return nil
	}
	for _, key := range []string{
		sessioncache.KeyUserID,
		sessioncache.KeyUserName,
		sessioncache.KeyUserEmail,
		sessioncache.KeyUserMobile,
	} {
		if err := p.cache.Remove(key); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	p.logger.Info("logged out")
	return nil
}

// CurrentUser returns the active identity, or nil when logged out.
func (p *Provider) CurrentUser() *User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// CurrentUserID returns the active identity's id, or "" when logged out.
func (p *Provider) CurrentUserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return ""
	}
	return p.current.ID
}

// LoggedIn reports whether an identity is active.
func (p *Provider) LoggedIn() bool {
	return p.CurrentUserID() != ""
}
