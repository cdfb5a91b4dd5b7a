package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ds124wfegd/afritix/config"
	"github.com/ds124wfegd/afritix/internal/clock"
	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/internal/service"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type memScheduled struct {
	mu   sync.Mutex
	rows map[int64]*entity.ScheduledNotification
}

func newMemScheduled(rows ...*entity.ScheduledNotification) *memScheduled {
	m := &memScheduled{rows: make(map[int64]*entity.ScheduledNotification)}
	for i, r := range rows {
		r.ID = int64(i + 1)
		m.rows[r.ID] = r
	}
	return m
}

func (m *memScheduled) Create(context.Context, *entity.ScheduledNotification) error { return nil }

func (m *memScheduled) GetByID(_ context.Context, id int64) (*entity.ScheduledNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.rows[id]
	return &cp, nil
}

func (m *memScheduled) List(context.Context, bool, int, int) ([]*entity.ScheduledNotification, error) {
	return nil, nil
}

func (m *memScheduled) FindDue(_ context.Context, at time.Time, _ int) ([]*entity.ScheduledNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ScheduledNotification
	for id := int64(1); id <= int64(len(m.rows)); id++ {
		if r, ok := m.rows[id]; ok && r.Due(at) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memScheduled) MarkSent(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Sent = true
	return nil
}

func (m *memScheduled) RecordFailure(_ context.Context, id int64, attempts int, lastError string, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rows[id]
	r.Attempts, r.LastError, r.NextAttemptAt = attempts, lastError, &next
	return nil
}

func (m *memScheduled) MarkFailed(_ context.Context, id int64, attempts int, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rows[id]
	r.Attempts, r.LastError, r.Failed = attempts, lastError, true
	return nil
}

func (m *memScheduled) DeleteUnsent(context.Context, int64) error { return nil }

type recordingDispatcher struct {
	mu       sync.Mutex
	requests []*service.DispatchRequest
	err      error
	optedOut bool
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req *service.DispatchRequest) (*entity.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	if d.err != nil {
		return nil, d.err
	}
	if d.optedOut {
		return nil, nil
	}
	return &entity.Notification{ID: int64(len(d.requests)), UserID: req.UserID, Type: req.Type}, nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func newScheduler(repo *memScheduled, d service.Dispatcher, at time.Time) *NotificationScheduler {
	return NewNotificationScheduler(repo, d, clock.NewFixed(at), config.WorkerConfig{
		BatchSize:      50,
		MaxAttempts:    3,
		RetryBaseDelay: time.Minute,
	})
}

func dueRow(t string) *entity.ScheduledNotification {
	return &entity.ScheduledNotification{
		ScheduledFor: now.Add(-time.Minute),
		Title:        "Reminder",
		Message:      "Starts soon",
		Type:         t,
		UserID:       7,
		Metadata:     entity.Metadata{entity.MetaEventID: 3},
	}
}

func TestTickSendsDueRowOnce(t *testing.T) {
	off := false
	row := dueRow(string(entity.NotificationEventReminder))
	row.SendPush = &off
	future := dueRow(string(entity.NotificationEventReminder))
	future.ScheduledFor = now.Add(time.Hour)

	repo := newMemScheduled(row, future)
	d := &recordingDispatcher{}
	s := newScheduler(repo, d, now)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Equal(t, 1, d.count())

	req := d.requests[0]
	assert.Equal(t, entity.NotificationEventReminder, req.Type)
	assert.True(t, req.SendEmail, "unset sendEmail defaults to true")
	assert.False(t, req.SendPush)
	assert.True(t, repo.rows[1].Sent)
	assert.False(t, repo.rows[2].Sent)

	n, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, d.count())
}

func TestTickOptedOutCountsAsSent(t *testing.T) {
	repo := newMemScheduled(dueRow(string(entity.NotificationEventReminder)))
	s := newScheduler(repo, &recordingDispatcher{optedOut: true}, now)

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, repo.rows[1].Sent)
}

func TestTickDeadLettersUnknownType(t *testing.T) {
	repo := newMemScheduled(dueRow("BIRTHDAY"))
	d := &recordingDispatcher{}
	s := newScheduler(repo, d, now)

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	row := repo.rows[1]
	assert.True(t, row.Failed)
	assert.False(t, row.Sent)
	assert.Equal(t, 1, row.Attempts)
	assert.Contains(t, row.LastError, "BIRTHDAY")
	assert.Zero(t, d.count())

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTickRetriesWithBackoffThenDeadLetters(t *testing.T) {
	repo := newMemScheduled(dueRow(string(entity.NotificationEventReminder)))
	d := &recordingDispatcher{err: errors.New("database unavailable")}

	at := now
	for attempt := 1; attempt <= 2; attempt++ {
		s := newScheduler(repo, d, at)
		n, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, n)

		row := repo.rows[1]
		require.False(t, row.Failed)
		assert.Equal(t, attempt, row.Attempts)
		require.NotNil(t, row.NextAttemptAt)
		assert.True(t, row.NextAttemptAt.After(at))

		// Not due again until the backoff elapses.
		n, err = newScheduler(repo, d, at).RunOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)

		at = *row.NextAttemptAt
	}

	_, err := newScheduler(repo, d, at).RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, repo.rows[1].Failed)
	assert.Equal(t, 3, repo.rows[1].Attempts)
	assert.Equal(t, "database unavailable", repo.rows[1].LastError)
	assert.Equal(t, 3, d.count())
}

func TestTickDeadLettersValidationFailure(t *testing.T) {
	repo := newMemScheduled(dueRow(string(entity.NotificationOrderCancelled)))
	d := &recordingDispatcher{err: entity.NewValidationError("metadata.orderId", "required")}

	_, err := newScheduler(repo, d, now).RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, repo.rows[1].Failed)
	assert.Equal(t, 1, d.count())
}

func TestSchedulerStopsOnce(t *testing.T) {
	hook := logtest.NewGlobal()
	defer logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))

	s := newScheduler(newMemScheduled(), &recordingDispatcher{}, now)
	s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	s.Stop()
	s.Stop()

	stopped := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "Notification scheduler stopped" {
			stopped++
		}
	}
	assert.Equal(t, 1, stopped)
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := NewRetryPolicy(5, time.Minute)
	p.jitter = func(n int64) int64 { return n / 2 } // no jitter

	assert.Equal(t, time.Minute, p.Backoff(1))
	assert.Equal(t, 2*time.Minute, p.Backoff(2))
	assert.Equal(t, 4*time.Minute, p.Backoff(3))
	assert.Equal(t, 16*time.Minute, p.Backoff(10))

	p.jitter = func(n int64) int64 { return n - 1 } // max jitter
	assert.Equal(t, 16*time.Minute, p.Backoff(5))
	assert.Equal(t, 5*time.Minute, p.Backoff(3))

	ok, _ := p.ShouldRetry(5, errors.New("boom"))
	assert.False(t, ok)
	ok, _ = p.ShouldRetry(1, entity.ErrEventNotFound)
	assert.False(t, ok)
	ok, d := p.ShouldRetry(1, errors.New("boom"))
	assert.True(t, ok)
	assert.Equal(t, 75*time.Second, d)
}

type countingExpirer struct {
	mu     sync.Mutex
	before []time.Time
}

func (c *countingExpirer) ExpirePendingOrders(_ context.Context, before time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.before = append(c.before, before)
	return 2, nil
}

func TestOrderExpiryWorker(t *testing.T) {
	exp := &countingExpirer{}
	w := NewOrderExpiryWorker(exp, clock.NewFixed(now), 10*time.Millisecond)

	assert.Equal(t, 2, w.expire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		exp.mu.Lock()
		defer exp.mu.Unlock()
		return len(exp.before) >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, now, exp.before[0])
}
