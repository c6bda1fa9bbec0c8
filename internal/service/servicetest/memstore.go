// Package servicetest provides in-memory implementations of the service
// store interfaces for tests.
package servicetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/faizvk/ecommerce-app/internal/model"
	q "github.com/faizvk/ecommerce-app/internal/queue"
	"github.com/faizvk/ecommerce-app/internal/repository"
	"github.com/faizvk/ecommerce-app/internal/service"
)

// Users is a service.UserStore.
type Users struct {
	mu   sync.Mutex
	byID map[string]*model.User
}

func NewUsers() *Users { return &Users{byID: map[string]*model.User{}} }

func (m *Users) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
		if u.GoogleID != nil && x.GoogleID != nil && *x.GoogleID == *u.GoogleID {
			return repository.ErrConflict
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *Users) find(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == strings.ToLower(email) })
}

func (m *Users) GetByID(_ context.Context, id string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}

func (m *Users) GetByGoogleID(_ context.Context, gid string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.GoogleID != nil && *u.GoogleID == gid })
}

func (m *Users) UpdatePassword(_ context.Context, id, hash, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash, u.Provider = hash, provider
	return nil
}

func (m *Users) LinkGoogle(_ context.Context, id, gid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.GoogleID != nil {
		return repository.ErrUserNotFound
	}
	u.GoogleID = &gid
	return nil
}

func (m *Users) UpdateProfile(_ context.Context, id string, p model.Profile) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		u.Age = p.Age
	}
	if p.Address != nil {
		u.Address = p.Address
	}
	if p.Contact != nil {
		u.Contact = p.Contact
	}
	cp := *u
	return &cp, nil
}

func (m *Users) UpdateRole(_ context.Context, id, role string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

func (m *Users) List(context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, *u)
	}
	return out, nil
}

// Tokens is a service.TokenStore.
type Tokens struct {
	mu     sync.Mutex
	byHash map[string]*model.RefreshToken
}

func NewTokens() *Tokens { return &Tokens{byHash: map[string]*model.RefreshToken{}} }

func (m *Tokens) StoreRefresh(_ context.Context, userID, hash, family string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[hash] = &model.RefreshToken{UserID: userID, TokenHash: hash, Family: family, ExpiresAt: exp, CreatedAt: time.Now()}
	return nil
}

func (m *Tokens) Lookup(_ context.Context, hash string) (*model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[hash]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Tokens) RevokeByHash(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[hash]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	now := time.Now()
	t.RevokedAt = &now
	return true, nil
}

func (m *Tokens) revokeWhere(match func(*model.RefreshToken) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.byHash {
		if t.RevokedAt == nil && match(t) {
			t.RevokedAt = &now
		}
	}
}

func (m *Tokens) RevokeFamily(_ context.Context, family string) error {
	m.revokeWhere(func(t *model.RefreshToken) bool { return t.Family == family })
	return nil
}

func (m *Tokens) RevokeAllForUser(_ context.Context, userID string) error {
	m.revokeWhere(func(t *model.RefreshToken) bool { return t.UserID == userID })
	return nil
}

// Google is a service.GoogleVerifier returning a fixed result.
type Google struct {
	ID  service.GoogleIdentity
	Err error
}

func (g Google) Verify(context.Context, string) (service.GoogleIdentity, error) { return g.ID, g.Err }

// Products is a service.ProductStore.  It counts reads so tests can tell
// cache hits apart.  AfterWrite, when set, runs after every committed write.
type Products struct {
	mu         sync.Mutex
	items      map[string]model.Product
	reads      int
	Fail       error
	AfterWrite func()
}

func NewProducts() *Products { return &Products{items: map[string]model.Product{}} }

func (m *Products) Create(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.items[p.ID] = *p
	m.committed()
	return nil
}

func (m *Products) committed() {
	if m.AfterWrite != nil {
		m.AfterWrite()
	}
}

func (m *Products) GetByID(_ context.Context, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	p, ok := m.items[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (m *Products) ListAll(context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	out := make([]model.Product, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Products) Search(_ context.Context, query model.ProductQuery) ([]model.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	var match []model.Product
	for _, p := range m.items {
		if query.Category != "" && p.Category != query.Category {
			continue
		}
		if query.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(query.Name)) {
			continue
		}
		match = append(match, p)
	}
	sort.Slice(match, func(i, j int) bool { return match[i].Name < match[j].Name })
	total := len(match)
	start := (query.Page - 1) * query.Limit
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}
	return match[start:end], total, nil
}

func (m *Products) Update(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.items[p.ID] = *p
	m.committed()
	return nil
}

func (m *Products) Delete(_ context.Context, id string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	delete(m.items, id)
	m.committed()
	return &p, nil
}

// Reads reports how many read calls reached the store.
func (m *Products) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Publisher records every event.  Err is returned from each publish.
type Publisher struct {
	mu     sync.Mutex
	events []q.ProductChangedEvent
	Err    error
}

func (r *Publisher) PublishProductChanged(_ context.Context, ev q.ProductChangedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *Publisher) Events() []q.ProductChangedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]q.ProductChangedEvent(nil), r.events...)
}

// ErrBroker is a ready-made publish failure.
var ErrBroker = errors.New("broker down")

var (
	_ service.UserStore      = (*Users)(nil)
	_ service.TokenStore     = (*Tokens)(nil)
	_ service.GoogleVerifier = Google{}
	_ service.ProductStore   = (*Products)(nil)
	_ service.EventPublisher = (*Publisher)(nil)
)
