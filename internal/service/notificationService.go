package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ds124wfegd/afritix/internal/clock"
	repository "github.com/ds124wfegd/afritix/internal/database/postgres"
	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/internal/realtime"
	"github.com/ds124wfegd/afritix/pkg/mailer"
	"github.com/ds124wfegd/afritix/pkg/metrics"
	"github.com/ds124wfegd/afritix/pkg/push"
	"github.com/sirupsen/logrus"
)

const (
	channelRealtime = "realtime"
	channelEmail    = "email"
	channelPush     = "push"
)

// NotificationDeps groups the collaborators of the notification service.
type NotificationDeps struct {
	Notifications repository.NotificationRepository
	Scheduled     repository.ScheduledNotificationRepository
	Preferences   repository.PreferenceRepository
	PushTokens    repository.PushTokenRepository
	Users         repository.UserRepository
	Events        repository.EventRepository
	Orders        repository.OrderRepository
	Broadcaster   realtime.Broadcaster
	Mailer        mailer.Mailer
	Push          push.Client
	Templates     *TemplateRegistry
	Clock         clock.Clock
}

type notificationService struct {
	NotificationDeps
}

func NewNotificationService(deps NotificationDeps) NotificationService {
	if deps.Templates == nil {
		deps.Templates = NewTemplateRegistry()
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	return &notificationService{NotificationDeps: deps}
}

// Dispatch validates the request, honours the user's opt-outs, persists the
// notification and then attempts each channel independently. A channel
// failure is logged and never returned. A nil notification with a nil error
// means the user opted out of this type.
func (s *notificationService) Dispatch(ctx context.Context, req *DispatchRequest) (*entity.Notification, error) {
	if req.UserID <= 0 {
		return nil, entity.NewValidationError("userId", "is required")
	}
	if !req.Type.Valid() {
		return nil, entity.NewValidationError("type", fmt.Sprintf("unknown notification type %q", req.Type))
	}
	if err := req.Metadata.ValidateFor(req.Type); err != nil {
		return nil, err
	}

	pref, err := s.loadPreferences(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"type":    req.Type,
	})

	if !pref.Allows(req.Type) {
		log.Debug("Notification type disabled by user, skipping")
		return nil, nil
	}

	title, message := s.resolveContent(req, log)
	if strings.TrimSpace(title) == "" {
		return nil, entity.NewValidationError("title", "is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, entity.NewValidationError("message", "is required")
	}

	n := &entity.Notification{
		UserID:   req.UserID,
		Title:    title,
		Message:  message,
		Type:     req.Type,
		Metadata: req.Metadata,
	}
	if err := s.Notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}
	log = log.WithField("notification_id", n.ID)

	s.deliver(ctx, log, channelRealtime, func() error {
		return s.Broadcaster.Broadcast(ctx, realtime.UserRoom(n.UserID), realtime.EventNotification, n)
	})

	if req.SendEmail && pref.Email {
		s.deliver(ctx, log, channelEmail, func() error { return s.sendEmail(ctx, n) })
	}
	if req.SendPush && pref.Push {
		s.deliver(ctx, log, channelPush, func() error { return s.sendPush(ctx, n) })
	}

	return n, nil
}

func (s *notificationService) loadPreferences(ctx context.Context, userID int64) (*entity.NotificationPreference, error) {
	pref, err := s.Preferences.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification preferences: %w", err)
	}
	if pref == nil {
		return entity.DefaultPreference(userID), nil
	}
	return pref, nil
}

// resolveContent prefers a registered template over the caller's text. A
// template that fails to render falls back to the caller's text.
func (s *notificationService) resolveContent(req *DispatchRequest, log *logrus.Entry) (string, string) {
	title, body, ok, err := s.Templates.Render(req.Type, TemplateData{
		Title:    req.Title,
		Message:  req.Message,
		Metadata: req.Metadata,
	})
	if err != nil {
		log.WithError(err).Warn("Template rendering failed, using supplied text")
		return req.Title, req.Message
	}
	if !ok {
		return req.Title, req.Message
	}
	return title, body
}

var errChannelSkipped = errors.New("channel skipped")

func (s *notificationService) deliver(_ context.Context, log *logrus.Entry, channel string, send func() error) {
	err := send()
	switch {
	case err == nil:
		metrics.NotificationsDispatched.WithLabelValues(channel, "ok").Inc()
	case errors.Is(err, errChannelSkipped):
		metrics.NotificationsDispatched.WithLabelValues(channel, "skipped").Inc()
	default:
		metrics.NotificationsDispatched.WithLabelValues(channel, "error").Inc()
		chErr := &entity.ChannelError{Channel: channel, Err: err}
		log.WithError(chErr).Error("Notification channel delivery failed")
	}
}

func (s *notificationService) sendEmail(ctx context.Context, n *entity.Notification) error {
	user, err := s.Users.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("failed to look up recipient: %w", err)
	}
	if user.Email == "" {
		return errChannelSkipped
	}
	return s.Mailer.SendNotificationEmail(ctx, user.Email, n.Title, n.Message)
}

// sendPush multicasts to every device of the user and forgets tokens the
// provider reports as invalid or unregistered.
func (s *notificationService) sendPush(ctx context.Context, n *entity.Notification) error {
	registered, err := s.PushTokens.ListByUser(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("failed to list push tokens: %w", err)
	}
	if len(registered) == 0 {
		return errChannelSkipped
	}

	tokens := make([]string, len(registered))
	for i, t := range registered {
		tokens[i] = t.Token
	}

	resp, err := s.Push.SendMulticast(ctx, tokens, push.Message{
		Title: n.Title,
		Body:  n.Message,
		Data:  pushData(n),
	})
	if errors.Is(err, push.ErrDisabled) {
		return errChannelSkipped
	}
	if err != nil {
		return err
	}

	var (
		stale  []string
		failed int
		last   error
	)
	for _, r := range resp.Responses {
		switch {
		case r.Error == nil:
		case push.IsStaleToken(r.Error):
			stale = append(stale, r.Token)
		default:
			failed++
			last = r.Error
		}
	}

	if len(stale) > 0 {
		removed, err := s.PushTokens.DeleteTokens(ctx, stale)
		if err != nil {
			logrus.WithError(err).WithField("user_id", n.UserID).Warn("Failed to remove stale push tokens")
		} else {
			logrus.WithFields(logrus.Fields{
				"user_id": n.UserID,
				"removed": removed,
			}).Info("Removed stale push tokens")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d devices failed: %w", failed, len(tokens), last)
	}
	return nil
}

func pushData(n *entity.Notification) map[string]string {
	data := map[string]string{
		"notificationId": fmt.Sprint(n.ID),
		"type":           string(n.Type),
	}
	for k, v := range n.Metadata {
		if _, taken := data[k]; !taken && v != nil {
			data[k] = fmt.Sprint(v)
		}
	}
	return data
}

func (s *notificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	list, err := s.Notifications.List(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	n, err := s.Notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

// MarkAsRead only succeeds for the owner; anyone else gets not-found.
// Every open socket of the owner is told so badges stay in sync.
func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID int64) error {
	if err := s.Notifications.MarkAsRead(ctx, userID, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	payload := map[string]int64{"notificationId": notificationID}
	if err := s.Broadcaster.Broadcast(ctx, realtime.UserRoom(userID), realtime.EventNotificationRead, payload); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Failed to broadcast read receipt")
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.Notifications.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return n, nil
}

func (s *notificationService) GetPreferences(ctx context.Context, userID int64) (*entity.NotificationPreference, error) {
	return s.loadPreferences(ctx, userID)
}

func (s *notificationService) UpdatePreferences(ctx context.Context, userID int64, req *UpdatePreferencesRequest) (*entity.NotificationPreference, error) {
	pref, err := s.loadPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		pref.Email = *req.Email
	}
	if req.Push != nil {
		pref.Push = *req.Push
	}
	if req.Types != nil {
		types := make([]entity.NotificationType, 0, len(req.Types))
		seen := make(map[entity.NotificationType]bool, len(req.Types))
		for _, raw := range req.Types {
			t, err := entity.ParseNotificationType(raw)
			if err != nil {
				return nil, entity.NewValidationError("types", err.Error())
			}
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
		pref.Types = types
	}

	if err := s.Preferences.Upsert(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to save notification preferences: %w", err)
	}
	return pref, nil
}

func (s *notificationService) RegisterPushToken(ctx context.Context, userID int64, req *RegisterPushTokenRequest) (*entity.PushToken, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, entity.NewValidationError("token", "is required")
	}

	t := &entity.PushToken{UserID: userID, Token: token, Platform: req.Platform}
	if err := s.PushTokens.Upsert(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to register push token: %w", err)
	}
	return t, nil
}

func (s *notificationService) RemovePushToken(ctx context.Context, userID int64, token string) error {
	if err := s.PushTokens.Delete(ctx, userID, token); err != nil {
		return fmt.Errorf("failed to remove push token: %w", err)
	}
	return nil
}

func (s *notificationService) Schedule(ctx context.Context, req *ScheduleRequest) (*entity.ScheduledNotification, error) {
	t, err := entity.ParseNotificationType(req.Type)
	if err != nil {
		return nil, entity.NewValidationError("type", err.Error())
	}
	if req.ScheduledFor.IsZero() {
		return nil, entity.NewValidationError("scheduledFor", "is required")
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, entity.NewValidationError("title", "title and message are required")
	}
	if err := req.Metadata.ValidateFor(t); err != nil {
		return nil, err
	}

	sn := &entity.ScheduledNotification{
		ScheduledFor: req.ScheduledFor.UTC(),
		Title:        req.Title,
		Message:      req.Message,
		Type:         string(t),
		UserID:       req.UserID,
		Metadata:     req.Metadata,
		SendEmail:    req.SendEmail,
		SendPush:     req.SendPush,
	}
	if err := s.Scheduled.Create(ctx, sn); err != nil {
		return nil, fmt.Errorf("failed to schedule notification: %w", err)
	}
	return sn, nil
}

func (s *notificationService) CancelScheduled(ctx context.Context, id int64) error {
	if err := s.Scheduled.DeleteUnsent(ctx, id); err != nil {
		return fmt.Errorf("failed to cancel scheduled notification: %w", err)
	}
	return nil
}

func (s *notificationService) ListScheduled(ctx context.Context, pendingOnly bool, limit, offset int) ([]*entity.ScheduledNotification, error) {
	list, err := s.Scheduled.List(ctx, pendingOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled notifications: %w", err)
	}
	return list, nil
}

// Announcement is the eventUpdate payload for admin announcements.
type Announcement struct {
	EventID int64  `json:"eventId"`
	Title   string `json:"title"`
	Message string `json:"message"`
	SentAt  string `json:"sentAt"`
}

// BroadcastAnnouncement tells everyone watching the event live and notifies
// every ticket holder. It returns how many holders were notified.
func (s *notificationService) BroadcastAnnouncement(ctx context.Context, eventID int64, title, message string) (int, error) {
	title, message = strings.TrimSpace(title), strings.TrimSpace(message)
	if title == "" || message == "" {
		return 0, entity.NewValidationError("message", "title and message are required")
	}

	if _, err := s.Events.GetByID(ctx, eventID); err != nil {
		return 0, fmt.Errorf("failed to get event: %w", err)
	}

	ann := Announcement{
		EventID: eventID,
		Title:   title,
		Message: message,
		SentAt:  s.Clock.Now().Format("2006-01-02T15:04:05Z07:00"),
	}
	if err := s.Broadcaster.Broadcast(ctx, realtime.EventRoom(eventID), realtime.EventEventUpdate, ann); err != nil {
		logrus.WithError(err).WithField("event_id", eventID).Warn("Failed to broadcast announcement")
	}

	holders, err := s.Orders.TicketHolders(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to list ticket holders: %w", err)
	}

	return s.notifyAll(ctx, holders, entity.NotificationEventUpdate, title, message,
		entity.Metadata{entity.MetaEventID: eventID}, false), nil
}

// notifyAll dispatches the same notification to each user and returns how
// many were created. Individual failures are logged.
func (s *notificationService) notifyAll(ctx context.Context, users []int64, t entity.NotificationType, title, message string, meta entity.Metadata, email bool) int {
	sent := 0
	for _, userID := range users {
		n, err := s.Dispatch(ctx, &DispatchRequest{
			UserID:    userID,
			Title:     title,
			Message:   message,
			Type:      t,
			Metadata:  meta,
			SendEmail: email,
			SendPush:  true,
		})
		if err != nil {
			logrus.WithError(err).WithField("user_id", userID).Error("Failed to notify ticket holder")
			continue
		}
		if n != nil {
			sent++
		}
	}
	return sent
}
