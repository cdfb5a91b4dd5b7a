package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ds124wfegd/afritix/config"
	"github.com/ds124wfegd/afritix/internal/clock"
	repository "github.com/ds124wfegd/afritix/internal/database/postgres"
	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/internal/service"
	"github.com/ds124wfegd/afritix/pkg/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// NotificationScheduler sends scheduled notifications once they fall due.
type NotificationScheduler struct {
	scheduled  repository.ScheduledNotificationRepository
	dispatcher service.Dispatcher
	retry      *RetryPolicy
	clock      clock.Clock
	schedule   string
	batchSize  int
	cron       *cron.Cron
	stopOnce   sync.Once
}

func NewNotificationScheduler(
	scheduled repository.ScheduledNotificationRepository,
	dispatcher service.Dispatcher,
	clk clock.Clock,
	cfg config.WorkerConfig,
) *NotificationScheduler {
	if clk == nil {
		clk = clock.NewSystem()
	}
	schedule := cfg.NotificationSchedule
	if schedule == "" {
		schedule = "@every 1m"
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return &NotificationScheduler{
		scheduled:  scheduled,
		dispatcher: dispatcher,
		retry:      NewRetryPolicy(cfg.MaxAttempts, cfg.RetryBaseDelay),
		clock:      clk,
		schedule:   schedule,
		batchSize:  batch,
	}
}

// Start registers the tick with cron. Ticks never overlap: a tick that is
// still running when the next one fires makes cron skip the new one.
// Cancelling ctx interrupts a running tick; the owner still calls Stop.
func (s *NotificationScheduler) Start(ctx context.Context) error {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	s.cron = cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			logrus.WithError(err).Error("Scheduled notification tick failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.WithField("schedule", s.schedule).Info("Notification scheduler started")
	return nil
}

// Stop waits for a running tick to finish. Only the first call does anything.
func (s *NotificationScheduler) Stop() {
	if s.cron == nil {
		return
	}
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		logrus.Info("Notification scheduler stopped")
	})
}

// RunOnce processes every row that is due now and returns how many it
// handled.
func (s *NotificationScheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()

	due, err := s.scheduled.FindDue(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	logrus.WithField("count", len(due)).Debug("Processing due notifications")

	processed := 0
	for _, sn := range due {
		select {
		case <-ctx.Done():
			logrus.Info("Scheduler tick interrupted by context cancellation")
			return processed, ctx.Err()
		default:
		}

		s.process(ctx, sn, now)
		processed++
	}
	return processed, nil
}

func (s *NotificationScheduler) process(ctx context.Context, sn *entity.ScheduledNotification, now time.Time) {
	log := logrus.WithFields(logrus.Fields{
		"scheduled_id": sn.ID,
		"user_id":      sn.UserID,
		"type":         sn.Type,
	})

	t, err := entity.ParseNotificationType(sn.Type)
	if err != nil {
		s.deadLetter(ctx, log, sn, err)
		return
	}

	_, err = s.dispatcher.Dispatch(ctx, &service.DispatchRequest{
		UserID:    sn.UserID,
		Title:     sn.Title,
		Message:   sn.Message,
		Type:      t,
		Metadata:  sn.Metadata,
		SendEmail: sn.EmailRequested(),
		SendPush:  sn.PushRequested(),
	})
	if err == nil {
		// A nil notification means the user opted out; that still counts as sent.
		if err := s.scheduled.MarkSent(ctx, sn.ID); err != nil {
			log.WithError(err).Error("Failed to mark scheduled notification sent")
			return
		}
		metrics.ScheduledNotifications.WithLabelValues("sent").Inc()
		log.Debug("Scheduled notification sent")
		return
	}

	attempts := sn.Attempts + 1
	retry, delay := s.retry.ShouldRetry(attempts, err)
	if !retry {
		s.deadLetter(ctx, log, sn, err)
		return
	}

	next := now.Add(delay)
	if rerr := s.scheduled.RecordFailure(ctx, sn.ID, attempts, err.Error(), next); rerr != nil {
		log.WithError(rerr).Error("Failed to record scheduled notification failure")
		return
	}
	metrics.ScheduledNotifications.WithLabelValues("retry").Inc()
	log.WithError(err).WithFields(logrus.Fields{
		"attempts":        attempts,
		"next_attempt_at": next,
	}).Warn("Scheduled notification failed, will retry")
}

// deadLetter parks the row so later ticks stop picking it up.
func (s *NotificationScheduler) deadLetter(ctx context.Context, log *logrus.Entry, sn *entity.ScheduledNotification, cause error) {
	attempts := sn.Attempts + 1
	if err := s.scheduled.MarkFailed(ctx, sn.ID, attempts, cause.Error()); err != nil {
		log.WithError(err).Error("Failed to dead-letter scheduled notification")
		return
	}
	metrics.ScheduledNotifications.WithLabelValues("failed").Inc()
	log.WithError(cause).WithField("attempts", attempts).Error("Scheduled notification dead-lettered")
}
