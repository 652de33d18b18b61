package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/mixi/internal/user"
	"github.com/fkhayef/mixi/pkg/request"
	"github.com/fkhayef/mixi/pkg/response"
)

// UserLookup finds the user a token is requested for
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// TokenRequest asks for a token for a registered email
type TokenRequest struct {
	Email string `json:"email" example:"sara@example.com"`
}

// TokenResponse carries a bearer token
type TokenResponse struct {
	AccessToken string             `json:"access_token"`
	TokenType   string             `json:"token_type"`
	ExpiresAt   string             `json:"expires_at"`
	User        *user.UserResponse `json:"user"`
}

// Handler issues tokens
type Handler struct {
	users UserLookup
	jwt   *JWTManager
}

// NewHandler creates a new auth handler
func NewHandler(users UserLookup, jwt *JWTManager) *Handler {
	return &Handler{users: users, jwt: jwt}
}

// Routes returns the router for auth endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/token", h.Token)
	return r
}

// Token handles POST /auth/token
// @Summary      Issue an access token
// @Description  Issue a bearer token for a registered user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body TokenRequest true "Token request"
// @Success      200 {object} response.APIResponse{data=TokenResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Router       /auth/token [post]
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := request.DecodeJSON(r, &req); err != nil || req.Email == "" {
		response.BadRequest(w, "Email is required")
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.Unauthorized(w, "Unknown user")
			return
		}
		slog.Error("token lookup failed", "error", err)
		response.InternalError(w, "Failed to issue token")
		return
	}

	token, expiresAt, err := h.jwt.Generate(u.ID, u.Email)
	if err != nil {
		slog.Error("token signing failed", "user_id", u.ID, "error", err)
		response.InternalError(w, "Failed to issue token")
		return
	}

	response.JSON(w, http.StatusOK, &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
		User:        u.ToResponse(),
	})
}
