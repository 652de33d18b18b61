package balance

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/mixi/internal/expense"
	"github.com/fkhayef/mixi/internal/group"
	"github.com/fkhayef/mixi/pkg/middleware"
	"github.com/fkhayef/mixi/pkg/request"
	"github.com/fkhayef/mixi/pkg/response"
)

// Handler handles HTTP requests for balance figures
type Handler struct {
	service *Service
}

// NewHandler creates a new balance handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for balance endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/groups/{groupId}", h.GroupSummary)
	r.Get("/groups/{groupId}/users/{userId}", h.UserSummary)
	r.Get("/expenses/{expenseId}", h.ExpenseBreakdown)

	return r
}

// GroupSummary handles GET /balances/groups/{groupId}
// @Summary      Group balance sheet
// @Description  Total shared spend plus every member's open balance and lifetime spending
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path string true "Group ID" format(uuid)
// @Success      200 {object} response.APIResponse{data=GroupSummary}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /balances/groups/{groupId} [get]
func (h *Handler) GroupSummary(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	groupID, err := request.UUIDParam(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	summary, err := h.service.GroupSummary(r.Context(), groupID, callerID)
	if err != nil {
		writeError(w, err, "Failed to compute balances")
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// UserSummary handles GET /balances/groups/{groupId}/users/{userId}
// @Summary      Member balance
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path string true "Group ID" format(uuid)
// @Param        userId path string true "User ID" format(uuid)
// @Success      200 {object} response.APIResponse{data=UserSummary}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /balances/groups/{groupId}/users/{userId} [get]
func (h *Handler) UserSummary(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	groupID, err := request.UUIDParam(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	userID, err := request.UUIDParam(r, "userId")
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	summary, err := h.service.UserSummary(r.Context(), groupID, userID, callerID)
	if err != nil {
		writeError(w, err, "Failed to compute balance")
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// ExpenseBreakdown handles GET /balances/expenses/{expenseId}
// @Summary      Expense breakdown
// @Description  What the caller paid, owes and is owed on one expense
// @Tags         balances
// @Produce      json
// @Security     BearerAuth
// @Param        expenseId path string true "Expense ID" format(uuid)
// @Success      200 {object} response.APIResponse{data=ExpenseBreakdown}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /balances/expenses/{expenseId} [get]
func (h *Handler) ExpenseBreakdown(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	expenseID, err := request.UUIDParam(r, "expenseId")
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	breakdown, err := h.service.ExpenseBreakdown(r.Context(), expenseID, callerID)
	if err != nil {
		writeError(w, err, "Failed to compute breakdown")
		return
	}

	response.JSON(w, http.StatusOK, breakdown)
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, group.ErrGroupNotFound), errors.Is(err, group.ErrMemberNotFound),
		errors.Is(err, expense.ErrExpenseNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, group.ErrNotMember):
		response.Forbidden(w, err.Error())
	default:
		slog.Error("balance request failed", "error", err)
		response.InternalError(w, fallback)
	}
}
