package notification

import (
	"time"

	"github.com/google/uuid"
)

// EntityType names what a notification points at
type EntityType string

const (
	EntityGroup      EntityType = "GROUP"
	EntityExpense    EntityType = "EXPENSE"
	EntitySettlement EntityType = "SETTLEMENT"
)

// Notification represents a notification in the system
type Notification struct {
	ID                uuid.UUID   `json:"id"`
	RecipientID       uuid.UUID   `json:"recipient_id"`
	Message           string      `json:"message"`
	IsRead            bool        `json:"is_read"`
	RelatedEntityType *EntityType `json:"related_entity_type,omitempty"`
	RelatedEntityID   *uuid.UUID  `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// NotificationResponse represents the response for a notification
type NotificationResponse struct {
	ID                uuid.UUID   `json:"id"`
	Message           string      `json:"message"`
	IsRead            bool        `json:"is_read"`
	RelatedEntityType *EntityType `json:"related_entity_type,omitempty"`
	RelatedEntityID   *uuid.UUID  `json:"related_entity_id,omitempty"`
	CreatedAt         string      `json:"created_at"`
}

// ToResponse converts a Notification to a NotificationResponse
func (n *Notification) ToResponse() *NotificationResponse {
	return &NotificationResponse{
		ID:                n.ID,
		Message:           n.Message,
		IsRead:            n.IsRead,
		RelatedEntityType: n.RelatedEntityType,
		RelatedEntityID:   n.RelatedEntityID,
		CreatedAt:         n.CreatedAt.UTC().Format(time.RFC3339),
	}
}
