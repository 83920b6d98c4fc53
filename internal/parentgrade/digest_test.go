package parentgrade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuedGrade(id, subject, assignmentType string, score float64) QueuedNotification {
	return QueuedNotification{
		ID:        id,
		StudentID: "student-1",
		Data: GradeUpdate{
			ParentID:       "parent-1",
			StudentID:      "student-1",
			StudentName:    "Budi",
			Subject:        subject,
			AssignmentType: assignmentType,
			Score:          score,
			MaxScore:       100,
		},
	}
}

func TestBuildDigest(t *testing.T) {
	entries := []QueuedNotification{
		queuedGrade("q1", "Mathematics", "homework", 85),
		queuedGrade("q2", "Physics", "mid_exam", 55),
		queuedGrade("q3", "Mathematics", "quiz", 60),
	}

	sum := BuildDigest(entries, 70)

	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, "student-1", sum.StudentID)
	assert.Equal(t, "Budi", sum.StudentName)
	assert.Equal(t, "parent-1", sum.ParentID)
	assert.Equal(t, []string{"Mathematics", "Physics"}, sum.Subjects)
	assert.Equal(t, 2, sum.BelowThreshold)
	assert.Equal(t, 1, sum.MajorExams)
}

func TestDeliverDigestsGroupsByStudent(t *testing.T) {
	f := newPolicyFixture()
	ctx := context.Background()
	now := clock(10, 0)
	f.freezeClock(now)

	due := now.Add(-time.Hour)
	first := queuedGrade("q1", "Mathematics", "homework", 85)
	first.Frequency = FrequencyDailyDigest
	first.ScheduledFor = due
	second := queuedGrade("q2", "Physics", "quiz", 55)
	second.Frequency = FrequencyDailyDigest
	second.ScheduledFor = due
	require.NoError(t, f.queue.Add(ctx, first))
	require.NoError(t, f.queue.Add(ctx, second))

	f.svc.DeliverDigests(ctx, FrequencyDailyDigest)

	require.Len(t, f.dispatcher.sent, 1)
	n := f.dispatcher.sent[0]
	assert.Equal(t, "Daily Grade Digest", n.Title)
	assert.Equal(t, []string{"parent-1"}, n.TargetUsers)
	assert.Contains(t, n.Body, "2 new grade(s)")
	assert.Contains(t, n.Body, "Mathematics, Physics")

	for _, q := range f.queue.entries {
		assert.True(t, q.Sent)
	}
}

func TestDeliverDigestsSkipsFutureEntries(t *testing.T) {
	f := newPolicyFixture()
	ctx := context.Background()
	now := clock(10, 0)
	f.freezeClock(now)

	pending := queuedGrade("q1", "Mathematics", "homework", 85)
	pending.Frequency = FrequencyDailyDigest
	pending.ScheduledFor = now.Add(time.Hour)
	require.NoError(t, f.queue.Add(ctx, pending))

	f.svc.DeliverDigests(ctx, FrequencyDailyDigest)

	assert.Empty(t, f.dispatcher.sent)
	assert.False(t, f.queue.entries[0].Sent)
}

func TestDeliverDigestsWeeklyTitle(t *testing.T) {
	f := newPolicyFixture()
	ctx := context.Background()
	now := clock(10, 0)
	f.freezeClock(now)

	entry := queuedGrade("q1", "Mathematics", "homework", 85)
	entry.Frequency = FrequencyWeeklySummary
	entry.ScheduledFor = now.Add(-time.Hour)
	require.NoError(t, f.queue.Add(ctx, entry))

	f.svc.DeliverDigests(ctx, FrequencyWeeklySummary)

	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, "Weekly Grade Summary", f.dispatcher.sent[0].Title)
}
