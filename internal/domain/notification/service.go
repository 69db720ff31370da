package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/salesportal/internal/domain/activity"
	"github.com/rpggio/salesportal/internal/domain/identity"
	"github.com/rpggio/salesportal/internal/domain/sheet"
	"github.com/rpggio/salesportal/internal/repository"
)

// EventAcknowledged is published after a successful acknowledgement.
const EventAcknowledged = "notification.acknowledged"

// EventPublisher delivers portal events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Auditor records audit log entries without failing the caller.
type Auditor interface {
	Record(ctx context.Context, login, company string, typ activity.ActivityType, summary string, details any)
}

// AckRequest identifies the notification row to acknowledge and who does it.
type AckRequest struct {
	Company   string
	Worksheet string
	IDColumn  string
	AckColumn string
	ID        string
	Login     string
}

// AcknowledgedEvent is the payload of EventAcknowledged.
type AcknowledgedEvent struct {
	ID             string    `json:"id"`
	Login          string    `json:"login"`
	Company        string    `json:"company,omitempty"`
	Worksheet      string    `json:"worksheet"`
	AcknowledgedBy []string  `json:"acknowledged_by"`
	At             time.Time `json:"at"`
}

// Service acknowledges notifications and counts unread ones.
type Service struct {
	store     repository.TabularStore
	worksheet string
	events    EventPublisher
	audit     Auditor
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new notification service. worksheet is the global
// per-user notifications worksheet; events and audit may be nil.
func NewService(store repository.TabularStore, worksheet string, events EventPublisher, audit Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:     store,
		worksheet: worksheet,
		events:    events,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// Acknowledge records that req.Login has seen the notification. It is
// idempotent and reports failure only through its result: a missing row or
// column, a store error, or a concurrent write all return false.
func (s *Service) Acknowledge(ctx context.Context, req AckRequest) bool {
	id := strings.TrimSpace(req.ID)
	if id == "" || identity.LoginFragment(req.Login) == "" || req.IDColumn == "" || req.AckColumn == "" {
		s.logger.Warn("acknowledge rejected", "id", id, "login", req.Login)
		return false
	}

	handle, err := s.store.FindRowByID(ctx, req.Worksheet, req.IDColumn, id)
	if err != nil {
		s.logger.Warn("acknowledge lookup failed", "worksheet", req.Worksheet, "id", id, "error", err)
		return false
	}
	current, ok := handle.Values[req.AckColumn]
	if !ok {
		s.logger.Warn("acknowledge column missing", "worksheet", req.Worksheet, "column", req.AckColumn)
		return false
	}

	updated, changed := AppendAcknowledger(current, req.Login)
	if !changed {
		return true
	}
	if err := s.store.WriteCell(ctx, handle, req.AckColumn, updated); err != nil {
		s.logger.Warn("acknowledge write failed", "worksheet", req.Worksheet, "id", id, "error", err)
		return false
	}

	s.logger.Info("notification acknowledged", "company", req.Company, "id", id, "login", req.Login)
	if s.audit != nil {
		s.audit.Record(ctx, identity.BareLogin(req.Login), req.Company, activity.TypeNotificationAcknowledged,
			fmt.Sprintf("acknowledged notification %s", id), map[string]string{"id": id, "worksheet": req.Worksheet})
	}
	if s.events != nil {
		event := AcknowledgedEvent{
			ID:             id,
			Login:          identity.BareLogin(req.Login),
			Company:        req.Company,
			Worksheet:      req.Worksheet,
			AcknowledgedBy: Acknowledgers(updated),
			At:             s.now().UTC(),
		}
		if err := s.events.Publish(ctx, EventAcknowledged, event); err != nil {
			s.logger.Warn("failed to publish acknowledgement", "id", id, "error", err)
		}
	}
	return true
}

// UnreadCount counts the unread notifications addressed to login. Any
// failure yields zero together with the reason.
func (s *Service) UnreadCount(ctx context.Context, login string) (int, error) {
	grid, err := s.store.Fetch(ctx, s.worksheet)
	if err != nil {
		return 0, fmt.Errorf("loading notifications: %w", err)
	}
	count, err := CountUnread(sheet.FromGrid(grid), login)
	if err != nil {
		s.logger.Warn("cannot count unread notifications", "worksheet", s.worksheet, "error", err)
		return 0, err
	}
	return count, nil
}
