package repository

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/NeZlox/authorization-service/internal/models"
)

// MemoryStore keeps users and sessions in process memory. Transactions are
// serialised and rolled back by restoring a snapshot. Writes made outside a
// transaction wait for the running one to finish, so a rollback never
// discards them.
type MemoryStore struct {
	txMu sync.Mutex

	mu       sync.Mutex
	users    map[string]models.User
	sessions map[string]memSession
	seq      int64
}

type memSession struct {
	session models.Session
	seq     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		sessions: make(map[string]memSession),
	}
}

func (s *MemoryStore) Users() UserStore       { return memUsers{s: s} }
func (s *MemoryStore) Sessions() SessionStore { return memSessions{s: s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	users := maps.Clone(s.users)
	sessions := maps.Clone(s.sessions)
	seq := s.seq
	s.mu.Unlock()

	err := fn(memTx{s})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Lock()
		s.users, s.sessions, s.seq = users, sessions, seq
		s.mu.Unlock()
		return err
	}
	return nil
}

// memTx is the Store handed to a transaction callback. Nested transactions join the outer one.
type memTx struct {
	*MemoryStore
}

func (t memTx) Users() UserStore       { return memUsers{s: t.MemoryStore, inTx: true} }
func (t memTx) Sessions() SessionStore { return memSessions{s: t.MemoryStore, inTx: true} }

func (t memTx) WithinTx(_ context.Context, fn func(tx Store) error) error {
	return fn(t)
}

// lockWrite holds txMu for the duration of a write issued outside a transaction.
// The returned func releases it.
func (s *MemoryStore) lockWrite(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

type memUsers struct {
	s    *MemoryStore
	inTx bool
}

func (u memUsers) Create(_ context.Context, user models.User) (models.User, error) {
	defer u.s.lockWrite(u.inTx)()

	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, ok := u.s.users[user.ID]; ok {
		return models.User{}, ErrUserExists
	}
	if _, ok := u.s.userByEmail(user.Email); ok {
		return models.User{}, ErrUserExists
	}
	user.PasswordHash = cloneBytes(user.PasswordHash)
	u.s.users[user.ID] = user
	return copyUser(user), nil
}

func (u memUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.userByEmail(email)
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return copyUser(user), nil
}

func (u memUsers) GetByID(_ context.Context, id string) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return copyUser(user), nil
}

func (u memUsers) List(_ context.Context, page models.Page) ([]models.User, int, error) {
	page = page.Normalize()

	u.s.mu.Lock()
	all := make([]models.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		all = append(all, copyUser(user))
	}
	u.s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, page), len(all), nil
}

func (u memUsers) Update(_ context.Context, id string, upd models.UserUpdate) (models.User, error) {
	defer u.s.lockWrite(u.inTx)()

	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	if upd.Email != nil {
		if other, ok := u.s.userByEmail(*upd.Email); ok && other.ID != id {
			return models.User{}, ErrUserExists
		}
		user.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		user.PasswordHash = cloneBytes(upd.PasswordHash)
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	user.UpdatedAt = upd.UpdatedAt
	u.s.users[id] = user
	return copyUser(user), nil
}

func (u memUsers) Delete(_ context.Context, id string) error {
	defer u.s.lockWrite(u.inTx)()

	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, ok := u.s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(u.s.users, id)
	for sid, ms := range u.s.sessions {
		if ms.session.UserID == id {
			delete(u.s.sessions, sid)
		}
	}
	return nil
}

type memSessions struct {
	s    *MemoryStore
	inTx bool
}

func (m memSessions) Create(_ context.Context, session models.Session) (models.Session, error) {
	defer m.s.lockWrite(m.inTx)()

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.users[session.UserID]; !ok {
		return models.Session{}, ErrUserNotFound
	}
	m.s.seq++
	session.Version = 1
	session.RefreshTokenHash = cloneBytes(session.RefreshTokenHash)
	m.s.sessions[session.ID] = memSession{session: session, seq: m.s.seq}
	return copySession(session), nil
}

func (m memSessions) GetByID(_ context.Context, id string) (models.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	ms, ok := m.s.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return copySession(ms.session), nil
}

func (m memSessions) Update(_ context.Context, id string, version int, upd models.SessionUpdate) (models.Session, error) {
	defer m.s.lockWrite(m.inTx)()

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	ms, ok := m.s.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	if ms.session.Version != version {
		return models.Session{}, ErrSessionConflict
	}

	ms.session.RefreshTokenHash = cloneBytes(upd.RefreshTokenHash)
	ms.session.Fingerprint = upd.Fingerprint
	ms.session.UserAgent = upd.UserAgent
	ms.session.IPAddress = upd.IPAddress
	ms.session.ExpiresAt = upd.ExpiresAt
	ms.session.UpdatedAt = upd.UpdatedAt
	ms.session.Version++
	m.s.sessions[id] = ms
	return copySession(ms.session), nil
}

func (m memSessions) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	return m.s.selectSessions(SessionFilter{UserID: userID}), nil
}

func (m memSessions) List(_ context.Context, filter SessionFilter, page models.Page) ([]models.Session, int, error) {
	page = page.Normalize()

	m.s.mu.Lock()
	matched := m.s.selectSessions(filter)
	m.s.mu.Unlock()

	// newest first, matching the postgres listing
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	return paginate(matched, page), len(matched), nil
}

func (m memSessions) Delete(_ context.Context, id string) error {
	defer m.s.lockWrite(m.inTx)()

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.s.sessions, id)
	return nil
}

func (m memSessions) DeleteWhere(_ context.Context, filter SessionFilter) (int64, error) {
	defer m.s.lockWrite(m.inTx)()

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var deleted int64
	for id, ms := range m.s.sessions {
		if filter.Matches(ms.session) {
			delete(m.s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m memSessions) DeleteOldest(_ context.Context, filter SessionFilter, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}

	defer m.s.lockWrite(m.inTx)()

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	matched := m.s.selectSessions(filter)
	if n > len(matched) {
		n = len(matched)
	}
	for _, session := range matched[:n] {
		delete(m.s.sessions, session.ID)
	}
	return int64(n), nil
}

func (m memSessions) CountWhere(_ context.Context, filter SessionFilter) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	count := 0
	for _, ms := range m.s.sessions {
		if filter.Matches(ms.session) {
			count++
		}
	}
	return count, nil
}

// selectSessions returns copies of matching sessions, oldest created first. Callers hold mu.
func (s *MemoryStore) selectSessions(filter SessionFilter) []models.Session {
	matched := make([]memSession, 0)
	for _, ms := range s.sessions {
		if filter.Matches(ms.session) {
			matched = append(matched, ms)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.session.CreatedAt.Equal(b.session.CreatedAt) {
			return a.session.CreatedAt.Before(b.session.CreatedAt)
		}
		return a.seq < b.seq
	})

	out := make([]models.Session, len(matched))
	for i, ms := range matched {
		out[i] = copySession(ms.session)
	}
	return out
}

func (s *MemoryStore) userByEmail(email string) (models.User, bool) {
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, true
		}
	}
	return models.User{}, false
}

func paginate[T any](items []T, page models.Page) []T {
	if page.Offset >= len(items) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

func copyUser(u models.User) models.User {
	u.PasswordHash = cloneBytes(u.PasswordHash)
	return u
}

func copySession(s models.Session) models.Session {
	s.RefreshTokenHash = cloneBytes(s.RefreshTokenHash)
	return s
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
