package parentgrade

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"SchoolNotify/internal/grades"
	"SchoolNotify/internal/notification"
	"SchoolNotify/internal/user"
)

// In-memory fakes for the policy engine tests.

type memSettingsStore struct {
	mu       sync.Mutex
	settings map[string]Settings
}

func newMemSettingsStore() *memSettingsStore {
	return &memSettingsStore{settings: make(map[string]Settings)}
}

func (s *memSettingsStore) Get(ctx context.Context, userID string) (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settings[userID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *memSettingsStore) Put(ctx context.Context, st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.UserID] = st
	return nil
}

func (s *memSettingsStore) AllEnabled(ctx context.Context) ([]Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Settings
	for _, st := range s.settings {
		if st.Enabled {
			out = append(out, st)
		}
	}
	return out, nil
}

type memQueueStore struct {
	mu      sync.Mutex
	entries []QueuedNotification
}

func (s *memQueueStore) Add(ctx context.Context, q QueuedNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, q)
	return nil
}

func (s *memQueueStore) Due(ctx context.Context, freq Frequency, now time.Time) ([]QueuedNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []QueuedNotification
	for _, q := range s.entries {
		if !q.Sent && q.Frequency == freq && !q.ScheduledFor.After(now) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *memQueueStore) MarkSent(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		for i := range s.entries {
			if s.entries[i].ID == id {
				s.entries[i].Sent = true
			}
		}
	}
	return nil
}

func (s *memQueueStore) Compact(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []QueuedNotification
	var pruned int64
	for _, q := range s.entries {
		if q.Sent && q.ScheduledFor.Before(before) {
			pruned++
			continue
		}
		kept = append(kept, q)
	}
	s.entries = kept
	return pruned, nil
}

func (s *memQueueStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

type memOCRQueueStore struct {
	mu      sync.Mutex
	entries []QueuedOCR
}

func (s *memOCRQueueStore) Add(ctx context.Context, q QueuedOCR) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, q)
	return nil
}

func (s *memOCRQueueStore) Due(ctx context.Context, now time.Time) ([]QueuedOCR, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []QueuedOCR
	for _, q := range s.entries {
		if !q.Sent && !q.ScheduledFor.After(now) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *memOCRQueueStore) MarkSent(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		for i := range s.entries {
			if s.entries[i].ID == id {
				s.entries[i].Sent = true
			}
		}
	}
	return nil
}

func (s *memOCRQueueStore) Compact(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []QueuedOCR
	var pruned int64
	for _, q := range s.entries {
		if q.Sent && q.ScheduledFor.Before(before) {
			pruned++
			continue
		}
		kept = append(kept, q)
	}
	s.entries = kept
	return pruned, nil
}

func (s *memOCRQueueStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []notification.Notification
	fail bool
}

func (d *fakeDispatcher) ShowNotification(ctx context.Context, n notification.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("dispatch failed")
	}
	d.sent = append(d.sent, n)
	return nil
}

type fakeGradesAPI struct {
	grades map[string][]grades.Grade
	err    error
}

func (f *fakeGradesAPI) RecentGrades(ctx context.Context, studentID string, since time.Time) ([]grades.Grade, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.grades[studentID], nil
}

type memUsers struct {
	users []user.User
}

func (d *memUsers) FindByID(ctx context.Context, id string) (*user.User, error) {
	for i := range d.users {
		if d.users[i].ID == id {
			u := d.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (d *memUsers) FindByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	var out []user.User
	for _, id := range ids {
		if u, _ := d.FindByID(ctx, id); u != nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (d *memUsers) FindByRoles(ctx context.Context, roles []string) ([]user.User, error) {
	return append([]user.User{}, d.users...), nil
}

type policyFixture struct {
	svc        *Service
	settings   *memSettingsStore
	queue      *memQueueStore
	ocrQueue   *memOCRQueueStore
	dispatcher *fakeDispatcher
	gradesAPI  *fakeGradesAPI
	users      *memUsers
}

func newPolicyFixture() *policyFixture {
	f := &policyFixture{
		settings:   newMemSettingsStore(),
		queue:      &memQueueStore{},
		ocrQueue:   &memOCRQueueStore{},
		dispatcher: &fakeDispatcher{},
		gradesAPI:  &fakeGradesAPI{grades: make(map[string][]grades.Grade)},
		users:      &memUsers{},
	}
	f.svc = NewService(f.settings, f.queue, f.ocrQueue, f.users, f.gradesAPI, f.dispatcher, zap.NewNop())
	return f
}

func (f *policyFixture) freezeClock(at time.Time) {
	f.svc.now = func() time.Time { return at }
}
