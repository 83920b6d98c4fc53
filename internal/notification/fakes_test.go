package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"SchoolNotify/internal/user"
)

// In-memory store fakes shared by the package tests.

type memHistoryStore struct {
	mu      sync.Mutex
	items   []HistoryItem
	dropped bool
}

func (s *memHistoryStore) Append(ctx context.Context, item HistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

func (s *memHistoryStore) Recent(ctx context.Context, limit int) ([]HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryItem, len(s.items))
	copy(out, s.items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeliveredAt.After(out[j].DeliveredAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memHistoryStore) Trim(ctx context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) <= keep {
		return nil
	}
	sort.SliceStable(s.items, func(i, j int) bool { return s.items[i].DeliveredAt.After(s.items[j].DeliveredAt) })
	s.items = s.items[:keep]
	return nil
}

func (s *memHistoryStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memHistoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memHistoryStore) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.dropped = true
	return nil
}

type memAnalyticsStore struct {
	mu      sync.Mutex
	records map[string]*Analytics
	dropped bool
}

func newMemAnalyticsStore() *memAnalyticsStore {
	return &memAnalyticsStore{records: make(map[string]*Analytics)}
}

func (s *memAnalyticsStore) Increment(ctx context.Context, id string, action Action, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		rec = &Analytics{NotificationID: id, RoleBreakdown: make(map[string]int)}
		s.records[id] = rec
	}
	switch action {
	case ActionDelivered:
		rec.Delivered++
	case ActionRead:
		rec.Read++
	case ActionClicked:
		rec.Clicked++
	case ActionDismissed:
		rec.Dismissed++
	}
	if role != "" {
		rec.RoleBreakdown[role]++
	}
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *memAnalyticsStore) Get(ctx context.Context, id string) (*Analytics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *memAnalyticsStore) All(ctx context.Context) ([]Analytics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Analytics, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *memAnalyticsStore) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*Analytics)
	s.dropped = true
	return nil
}

type memTemplateStore struct {
	mu        sync.Mutex
	templates map[string]Template
}

func newMemTemplateStore() *memTemplateStore {
	return &memTemplateStore{templates: make(map[string]Template)}
}

func (s *memTemplateStore) All(ctx context.Context) ([]Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Template, 0, len(s.templates))
	for _, tpl := range s.templates {
		out = append(out, tpl)
	}
	return out, nil
}

func (s *memTemplateStore) Put(ctx context.Context, tpl Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tpl.ID] = tpl
	return nil
}

func (s *memTemplateStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, id)
	return nil
}

type memSubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]PushSubscription
}

func newMemSubscriptionStore() *memSubscriptionStore {
	return &memSubscriptionStore{subs: make(map[string]PushSubscription)}
}

func (s *memSubscriptionStore) Get(ctx context.Context, userID string) (*PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (s *memSubscriptionStore) Put(ctx context.Context, sub PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.UserID] = sub
	return nil
}

func (s *memSubscriptionStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, userID)
	return nil
}

type memBatchStore struct {
	mu      sync.Mutex
	batches map[string]Batch
}

func newMemBatchStore() *memBatchStore {
	return &memBatchStore{batches: make(map[string]Batch)}
}

func (s *memBatchStore) Put(ctx context.Context, batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = *batch
	return nil
}

func (s *memBatchStore) Get(ctx context.Context, id string) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok {
		return nil, nil
	}
	return &batch, nil
}

type memScheduledStore struct {
	mu    sync.Mutex
	items map[string]*Scheduled
}

func newMemScheduledStore() *memScheduledStore {
	return &memScheduledStore{items: make(map[string]*Scheduled)}
}

func (s *memScheduledStore) Create(ctx context.Context, sched *Scheduled) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sched
	s.items[sched.ID] = &cp
	return nil
}

func (s *memScheduledStore) Due(ctx context.Context, now time.Time) ([]*Scheduled, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Scheduled
	for _, sched := range s.items {
		if sched.Status == "scheduled" && !sched.SendTime.After(now) {
			cp := *sched
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memScheduledStore) UpdateStatus(ctx context.Context, id, status string, sentTo int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.items[id]
	if !ok {
		return errors.New("not found")
	}
	sched.Status = status
	sched.SentTo = sentTo
	return nil
}

func (s *memScheduledStore) List(ctx context.Context) ([]*Scheduled, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Scheduled
	for _, sched := range s.items {
		cp := *sched
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memScheduledStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

type memUserDirectory struct {
	users []user.User
}

func (d *memUserDirectory) FindByID(ctx context.Context, id string) (*user.User, error) {
	for i := range d.users {
		if d.users[i].ID == id {
			u := d.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (d *memUserDirectory) FindByIDs(ctx context.Context, ids []string) ([]user.User, error) {
	var out []user.User
	for _, id := range ids {
		if u, _ := d.FindByID(ctx, id); u != nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (d *memUserDirectory) FindByRoles(ctx context.Context, roles []string) ([]user.User, error) {
	if len(roles) == 0 {
		return append([]user.User{}, d.users...), nil
	}
	var out []user.User
	for _, u := range d.users {
		for _, r := range roles {
			if u.HasRole(r) || u.HasExtraRole(r) {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string // recipient addresses in send order
	fail bool
}

func (m *fakeMailer) SendEmail(to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (s *fakeSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}
