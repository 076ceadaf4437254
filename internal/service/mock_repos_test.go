package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/internal/model"
	"github.com/oumizumi/Kairo-sub002/internal/repository"
	pkgerrors "github.com/oumizumi/Kairo-sub002/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users       map[string]*model.User // key: user_id
	seq         int
	failCreates int // Create fails this many times before succeeding
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.failCreates > 0 {
		m.failCreates--
		return errors.New("duplicate key value violates unique constraint")
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	u := *user
	m.users[user.UserID] = &u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if email != "" && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock CalendarRepository ──

type mockCalendarRepo struct {
	mu     sync.Mutex
	events map[string]model.UserCalendar // key: event_id
	seq    int
	err    error
}

func newMockCalendarRepo() *mockCalendarRepo {
	return &mockCalendarRepo{events: make(map[string]model.UserCalendar)}
}

func (m *mockCalendarRepo) insert(e *model.UserCalendar) {
	if e.EventID == "" {
		m.seq++
		e.EventID = fmt.Sprintf("event-%d", m.seq)
	}
	if e.Version == 0 {
		e.Version = 1
	}
	m.events[e.EventID] = *e
}

func (m *mockCalendarRepo) List(_ context.Context, userID string) ([]model.UserCalendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []model.UserCalendar{}
	for _, e := range m.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate < out[j].StartDate
		}
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (m *mockCalendarRepo) GetByID(_ context.Context, userID, id string) (*model.UserCalendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[id]; ok && e.UserID == userID {
		return &e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCalendarRepo) Create(_ context.Context, event *model.UserCalendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.insert(event)
	return nil
}

func (m *mockCalendarRepo) BatchCreate(_ context.Context, events []model.UserCalendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range events {
		m.insert(&events[i])
	}
	return nil
}

func (m *mockCalendarRepo) Update(_ context.Context, event *model.UserCalendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.events[event.EventID]
	if !ok || cur.UserID != event.UserID || cur.Version != event.Version {
		return pkgerrors.ErrVersionConflict
	}
	event.Version++
	m.events[event.EventID] = *event
	return nil
}

func (m *mockCalendarRepo) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[id]; ok && e.UserID == userID {
		delete(m.events, id)
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockCalendarRepo) DeleteAll(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.events {
		if e.UserID == userID {
			delete(m.events, id)
			n++
		}
	}
	return n, nil
}

func (m *mockCalendarRepo) DeleteRange(_ context.Context, userID, from, to string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteRange(userID, from, to), nil
}

func (m *mockCalendarRepo) deleteRange(userID, from, to string) int64 {
	var n int64
	for id, e := range m.events {
		if e.UserID == userID && e.StartDate >= from && e.StartDate <= to {
			delete(m.events, id)
			n++
		}
	}
	return n
}

func (m *mockCalendarRepo) ReplaceRanges(_ context.Context, userID string, ranges []repository.DateRange, events []model.UserCalendar) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, rg := range ranges {
		n += m.deleteRange(userID, rg.From, rg.To)
	}
	for i := range events {
		m.insert(&events[i])
	}
	return n, nil
}

func (m *mockCalendarRepo) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.UserID == userID {
			n++
		}
	}
	return n
}

// ── Mock ShareRepository ──

type mockShareRepo struct {
	shares map[string]*model.SharedSchedule
	seq    int
}

func newMockShareRepo() *mockShareRepo {
	return &mockShareRepo{shares: make(map[string]*model.SharedSchedule)}
}

func (m *mockShareRepo) Create(_ context.Context, share *model.SharedSchedule) error {
	if share.ShareID == "" {
		m.seq++
		share.ShareID = fmt.Sprintf("share-%d", m.seq)
	}
	s := *share
	m.shares[share.ShareID] = &s
	return nil
}

func (m *mockShareRepo) GetByID(_ context.Context, id string) (*model.SharedSchedule, error) {
	if s, ok := m.shares[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShareRepo) IncrementViews(_ context.Context, id string) error {
	s, ok := m.shares[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.ViewCount++
	return nil
}

// ── fixtures ──

type mockRepos struct {
	users    *mockUserRepo
	calendar *mockCalendarRepo
	shares   *mockShareRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		users:    newMockUserRepo(),
		calendar: newMockCalendarRepo(),
		shares:   newMockShareRepo(),
	}
	return &repository.Repository{
		User:     m.users,
		Calendar: m.calendar,
		Share:    m.shares,
	}, m
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{SessionTTL: "1h"},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-tests",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		AI: config.AIConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.1,
			MaxTokens:   300,
			Timeout:     "5s",
		},
		Share: config.ShareConfig{BaseURL: "https://kairoo.ca/"},
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
