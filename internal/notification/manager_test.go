package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"SchoolNotify/internal/user"
)

type managerFixture struct {
	manager   *Manager
	history   *memHistoryStore
	analytics *memAnalyticsStore
	subs      *memSubscriptionStore
	batches   *memBatchStore
	mailer    *fakeMailer
	speaker   *fakeSpeaker
	bus       *Bus
}

func newManagerFixture(t *testing.T, users []user.User) *managerFixture {
	t.Helper()
	log := zap.NewNop()
	f := &managerFixture{
		history:   &memHistoryStore{},
		analytics: newMemAnalyticsStore(),
		subs:      newMemSubscriptionStore(),
		batches:   newMemBatchStore(),
		mailer:    &fakeMailer{},
		speaker:   &fakeSpeaker{},
		bus:       NewBus(log),
	}
	push, err := NewPushHandler(f.subs, "", log)
	require.NoError(t, err)
	f.manager = NewManager(
		&memUserDirectory{users: users},
		NewHistoryHandler(f.history, 50, log),
		NewAnalyticsHandler(f.analytics, log),
		NewTemplateEngine(newMemTemplateStore(), log),
		push,
		NewEmailHandler(f.mailer, log),
		NewVoiceHandler(f.speaker, log),
		f.batches,
		f.bus,
		log,
	)
	return f
}

func TestDispatchRoleTargeting(t *testing.T) {
	f := newManagerFixture(t, []user.User{
		{ID: "p1", Role: user.RoleParent},
		{ID: "t1", Role: user.RoleTeacher},
		{ID: "s1", Role: user.RoleStudent},
	})
	ctx := context.Background()

	delivered, err := f.manager.Dispatch(ctx, Notification{
		Type:        TypeAnnouncement,
		Title:       "Staff meeting",
		Body:        "Friday 14:00",
		TargetRoles: []string{user.RoleTeacher},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	rec := f.analytics.records
	require.Len(t, rec, 1)
	for _, a := range rec {
		assert.Equal(t, 1, a.Delivered)
		assert.Equal(t, 1, a.RoleBreakdown[user.RoleTeacher])
	}
}

func TestDispatchExtraRoleTargeting(t *testing.T) {
	f := newManagerFixture(t, []user.User{
		{ID: "t1", Role: user.RoleTeacher, ExtraRoles: []string{"homeroom"}},
		{ID: "t2", Role: user.RoleTeacher},
	})

	delivered, err := f.manager.Dispatch(context.Background(), Notification{
		Type:             TypeSystem,
		Title:            "Homeroom coordination",
		TargetExtraRoles: []string{"homeroom"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
}

func TestDispatchNoFiltersReachesEveryone(t *testing.T) {
	f := newManagerFixture(t, []user.User{
		{ID: "p1", Role: user.RoleParent},
		{ID: "t1", Role: user.RoleTeacher},
	})

	delivered, err := f.manager.Dispatch(context.Background(), Notification{
		Type:  TypeSystem,
		Title: "Maintenance window",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
}

func TestDispatchDisabledTypeSkipsUser(t *testing.T) {
	f := newManagerFixture(t, []user.User{
		{ID: "p1", Role: user.RoleParent, DisabledTypes: []string{"grade"}},
		{ID: "p2", Role: user.RoleParent},
	})

	delivered, err := f.manager.Dispatch(context.Background(), Notification{
		Type:        TypeGrade,
		Title:       "Grade Updated",
		TargetRoles: []string{user.RoleParent},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
}

func TestDispatchPermissionDeniedAllRecipients(t *testing.T) {
	f := newManagerFixture(t, []user.User{{ID: "p1", Role: user.RoleParent}})
	ctx := context.Background()
	require.NoError(t, f.subs.Put(ctx, PushSubscription{UserID: "p1", Permission: PermissionDenied}))

	delivered, err := f.manager.Dispatch(ctx, Notification{
		Type:        TypeGrade,
		Title:       "Grade Updated",
		TargetUsers: []string{"p1"},
	})
	require.Error(t, err)
	assert.True(t, IsPermissionDenied(err))
	assert.Zero(t, delivered)
	assert.Empty(t, f.history.items)
}

func TestDispatchPermissionDeniedPartial(t *testing.T) {
	f := newManagerFixture(t, []user.User{
		{ID: "p1", Role: user.RoleParent},
		{ID: "p2", Role: user.RoleParent},
	})
	ctx := context.Background()
	require.NoError(t, f.subs.Put(ctx, PushSubscription{UserID: "p1", Permission: PermissionDenied}))

	delivered, err := f.manager.Dispatch(ctx, Notification{
		Type:        TypeGrade,
		Title:       "Grade Updated",
		TargetRoles: []string{user.RoleParent},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Len(t, f.history.items, 1)
}

func TestDispatchRecordsHistoryOncePerNotification(t *testing.T) {
	f := newManagerFixture(t, []user.User{
		{ID: "p1", Role: user.RoleParent},
		{ID: "p2", Role: user.RoleParent},
	})

	delivered, err := f.manager.Dispatch(context.Background(), Notification{
		ID:          "n-1",
		Type:        TypeAnnouncement,
		Title:       "Holiday",
		TargetRoles: []string{user.RoleParent},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	require.Len(t, f.history.items, 1)
	assert.Equal(t, "n-1", f.history.items[0].ID)
}

func TestDispatchEmailOptIn(t *testing.T) {
	f := newManagerFixture(t, []user.User{
		{ID: "p1", Role: user.RoleParent, Email: "p1@example.com", EmailNotifications: true},
		{ID: "p2", Role: user.RoleParent, Email: "p2@example.com"},
	})

	_, err := f.manager.Dispatch(context.Background(), Notification{
		Type:        TypeAnnouncement,
		Title:       "Holiday",
		Body:        "School closed Monday",
		TargetRoles: []string{user.RoleParent},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1@example.com"}, f.mailer.sent)
}

func TestDispatchVoiceOptIn(t *testing.T) {
	f := newManagerFixture(t, []user.User{
		{ID: "p1", Role: user.RoleParent, VoiceNotifications: true},
		{ID: "p2", Role: user.RoleParent},
	})

	_, err := f.manager.Dispatch(context.Background(), Notification{
		Type:        TypeAnnouncement,
		Title:       "Holiday",
		Body:        "School closed Monday",
		TargetRoles: []string{user.RoleParent},
	})
	require.NoError(t, err)
	require.Len(t, f.speaker.spoken, 1)
	assert.Contains(t, f.speaker.spoken[0], "Holiday")
}

func TestNotifyGradeUpdateEmitsEvent(t *testing.T) {
	f := newManagerFixture(t, []user.User{
		{ID: "p1", Role: user.RoleParent},
	})

	var got GradeUpdatedEvent
	f.manager.Bus().Subscribe(EventGradeUpdated, func(e Event) {
		got = e.(GradeUpdatedEvent)
	})

	err := f.manager.NotifyGradeUpdate(context.Background(), "s1", "Budi", "Math", 85, 100)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.StudentID)
	assert.Equal(t, "Math", got.Subject)
	assert.Equal(t, float64(85), got.Score)

	require.Len(t, f.history.items, 1)
	assert.Equal(t, TypeGrade, f.history.items[0].Type)
	assert.Contains(t, f.history.items[0].Body, "Budi received 85/100 in Math")
}

func TestNotifyMeetingRequestTargetsSingleParent(t *testing.T) {
	f := newManagerFixture(t, []user.User{
		{ID: "p1", Role: user.RoleParent},
		{ID: "p2", Role: user.RoleParent},
	})

	err := f.manager.NotifyMeetingRequest(context.Background(), "p1", "Mrs. Sari", "attendance", "Tuesday")
	require.NoError(t, err)

	require.Len(t, f.history.items, 1)
	assert.Equal(t, []string{"p1"}, f.history.items[0].TargetUsers)
	assert.Equal(t, PriorityHigh, f.history.items[0].Priority)
}

func TestSendBatchCompletes(t *testing.T) {
	f := newManagerFixture(t, []user.User{{ID: "p1", Role: user.RoleParent}})

	batch, err := f.manager.SendBatch(context.Background(), []Notification{
		{Type: TypeAnnouncement, Title: "one"},
		{Type: TypeAnnouncement, Title: "two"},
	})
	require.NoError(t, err)
	assert.Equal(t, BatchCompleted, batch.Status)
	assert.Empty(t, batch.FailureReason)

	stored, err := f.batches.Get(context.Background(), batch.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, BatchCompleted, stored.Status)
}

func TestSendBatchRecordsFirstFailureAndContinues(t *testing.T) {
	f := newManagerFixture(t, []user.User{{ID: "p1", Role: user.RoleParent}})
	ctx := context.Background()
	require.NoError(t, f.subs.Put(ctx, PushSubscription{UserID: "p1", Permission: PermissionDenied}))

	batch, err := f.manager.SendBatch(ctx, []Notification{
		{Type: TypeAnnouncement, Title: "one", TargetUsers: []string{"p1"}},
		{Type: TypeAnnouncement, Title: "two", TargetUsers: []string{"missing"}},
	})
	require.NoError(t, err)
	assert.Equal(t, BatchFailed, batch.Status)
	assert.NotEmpty(t, batch.FailureReason)
}
