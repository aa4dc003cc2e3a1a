package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
)

type mockLinkRepository struct {
	createFn func(ctx context.Context, link *model.ShortLink) error
	getFn    func(ctx context.Context, code string) (*model.ShortLink, error)
	listFn   func(ctx context.Context, owner uuid.UUID, limit, offset int) ([]model.ShortLink, error)
	countFn  func(ctx context.Context, owner uuid.UUID) (int64, error)
	deleteFn func(ctx context.Context, code string) error
	eachFn   func(ctx context.Context, fn func(code string)) error

	mu       sync.Mutex
	getCalls int
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.ShortLink) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByCode(ctx context.Context, code string) (*model.ShortLink, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	if m.getFn != nil {
		return m.getFn(ctx, code)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) ListByOwner(ctx context.Context, owner uuid.UUID, limit, offset int) ([]model.ShortLink, error) {
	if m.listFn != nil {
		return m.listFn(ctx, owner, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepository) CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, owner)
	}
	return 0, nil
}

func (m *mockLinkRepository) Delete(ctx context.Context, code string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, code)
	}
	return nil
}

func (m *mockLinkRepository) EachCode(ctx context.Context, fn func(code string)) error {
	if m.eachFn != nil {
		return m.eachFn(ctx, fn)
	}
	return nil
}

type mockClickEventRepository struct {
	mu       sync.Mutex
	created  []*model.ClickEvent
	createFn func(ctx context.Context, event *model.ClickEvent) error
	dailyFn  func(ctx context.Context, targetType, targetID string, since time.Time) ([]model.DailyCount, error)
}

func (m *mockClickEventRepository) Create(ctx context.Context, event *model.ClickEvent) error {
	m.mu.Lock()
	m.created = append(m.created, event)
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, event)
	}
	return nil
}

func (m *mockClickEventRepository) CountByTarget(context.Context, string, string, string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.created)), nil
}

func (m *mockClickEventRepository) DailyCounts(ctx context.Context, targetType, targetID string, since time.Time) ([]model.DailyCount, error) {
	if m.dailyFn != nil {
		return m.dailyFn(ctx, targetType, targetID, since)
	}
	return nil, nil
}

func (m *mockClickEventRepository) events() []*model.ClickEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.ClickEvent(nil), m.created...)
}

type mockCounterRepository struct {
	mu          sync.Mutex
	calls       []string
	incrementFn func(ctx context.Context, target model.CounterTarget, key string) (int64, error)
}

func (m *mockCounterRepository) Increment(ctx context.Context, target model.CounterTarget, key string) (int64, error) {
	m.mu.Lock()
	m.calls = append(m.calls, target.Table+"."+target.Column+":"+key)
	m.mu.Unlock()
	if m.incrementFn != nil {
		return m.incrementFn(ctx, target, key)
	}
	return 1, nil
}

func (m *mockCounterRepository) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type mockUnlockerRepository struct {
	createFn func(ctx context.Context, u *model.UrlUnlocker) error
	getFn    func(ctx context.Context, id uuid.UUID) (*model.UrlUnlocker, error)
	countFn  func(ctx context.Context, owner uuid.UUID) (int64, error)
	setExpFn func(ctx context.Context, id uuid.UUID, at time.Time) error
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockUnlockerRepository) Create(ctx context.Context, u *model.UrlUnlocker) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	return nil
}

func (m *mockUnlockerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.UrlUnlocker, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrUnlockerNotFound
}

func (m *mockUnlockerRepository) ListByOwner(context.Context, uuid.UUID, int, int) ([]model.UrlUnlocker, error) {
	return nil, nil
}

func (m *mockUnlockerRepository) CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, owner)
	}
	return 0, nil
}

func (m *mockUnlockerRepository) SetExpiration(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.setExpFn != nil {
		return m.setExpFn(ctx, id, at)
	}
	return nil
}

func (m *mockUnlockerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockSequenceRepository struct {
	createFn func(ctx context.Context, s *model.SequenceUnlocker) error
	getFn    func(ctx context.Context, id uuid.UUID) (*model.SequenceUnlocker, error)
	countFn  func(ctx context.Context, owner uuid.UUID) (int64, error)
	setExpFn func(ctx context.Context, id uuid.UUID, at time.Time) error
}

func (m *mockSequenceRepository) Create(ctx context.Context, s *model.SequenceUnlocker) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockSequenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SequenceUnlocker, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrSequenceNotFound
}

func (m *mockSequenceRepository) ListByOwner(context.Context, uuid.UUID, int, int) ([]model.SequenceUnlocker, error) {
	return nil, nil
}

func (m *mockSequenceRepository) CountByOwner(ctx context.Context, owner uuid.UUID) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, owner)
	}
	return 0, nil
}

func (m *mockSequenceRepository) SetExpiration(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.setExpFn != nil {
		return m.setExpFn(ctx, id, at)
	}
	return nil
}

func (m *mockSequenceRepository) Delete(context.Context, uuid.UUID) error { return nil }
