package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("not the recipient of this notification")
)

// Store is the persistence the notification service needs
type Store interface {
	Create(ctx context.Context, recipientID uuid.UUID, message string, entityType EntityType, entityID uuid.UUID) (*Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	ListByRecipientID(ctx context.Context, recipientID uuid.UUID, limit, offset int, unreadOnly bool) ([]*Notification, int, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	GetUnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error)
}

// Service handles notification business logic
type Service struct {
	repo   Store
	logger *slog.Logger
}

// NewService creates a new notification service
func NewService(repo Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger.With("component", "notification")}
}

// GetByID retrieves a notification by its ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		return nil, ErrNotificationNotFound
	}
	return notification, nil
}

// ListByRecipientID retrieves all notifications for a user
func (s *Service) ListByRecipientID(ctx context.Context, recipientID uuid.UUID, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// MarkAsRead marks a notification as read
func (s *Service) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	notification, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification.RecipientID != userID {
		return ErrNotRecipient
	}

	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for a user
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount returns the count of unread notifications
func (s *Service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// Helper methods for creating specific notification types. Delivery is best
// effort: failures are logged and never fail the operation that triggered them.

// NotifyGroupInvite tells a user they were invited to a group
func (s *Service) NotifyGroupInvite(ctx context.Context, recipientID uuid.UUID, groupName string, groupID uuid.UUID) {
	message := "You have been invited to join group: " + groupName
	s.send(ctx, recipientID, message, EntityGroup, groupID)
}

// NotifyExpenseAdded tells a borrower what they owe on a new expense
func (s *Service) NotifyExpenseAdded(ctx context.Context, recipientID uuid.UUID, payerName, description string, owed float64, currency string, expenseID uuid.UUID) {
	message := fmt.Sprintf("%s added %q: you owe %.2f %s", payerName, description, owed, currency)
	s.send(ctx, recipientID, message, EntityExpense, expenseID)
}

// NotifySplitPaid tells the payer that a borrower's share was paid
func (s *Service) NotifySplitPaid(ctx context.Context, recipientID uuid.UUID, borrowerName, description string, amount float64, currency string, expenseID uuid.UUID) {
	message := fmt.Sprintf("%s paid their %.2f %s share of %q", borrowerName, amount, currency, description)
	s.send(ctx, recipientID, message, EntityExpense, expenseID)
}

// NotifySettlement tells a member that a settlement involving them was recorded
func (s *Service) NotifySettlement(ctx context.Context, recipientID uuid.UUID, actorName string, amount float64, currency string, batchID uuid.UUID) {
	message := fmt.Sprintf("%s settled up: %.2f %s recorded between you", actorName, amount, currency)
	s.send(ctx, recipientID, message, EntitySettlement, batchID)
}

func (s *Service) send(ctx context.Context, recipientID uuid.UUID, message string, entityType EntityType, entityID uuid.UUID) {
	if _, err := s.repo.Create(ctx, recipientID, message, entityType, entityID); err != nil {
		s.logger.Warn("failed to deliver notification",
			"recipient_id", recipientID,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
	}
}
