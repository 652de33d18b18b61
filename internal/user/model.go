package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a member of the ledger. Users have no credentials here;
// a token is issued for a known email address.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
