package expense

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/mixi/internal/expense/split"
	"github.com/fkhayef/mixi/internal/group"
	"github.com/fkhayef/mixi/pkg/middleware"
	"github.com/fkhayef/mixi/pkg/request"
	"github.com/fkhayef/mixi/pkg/response"
)

// Handler handles HTTP requests for expense operations
type Handler struct {
	service *Service
}

// NewHandler creates a new expense handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for expense endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Delete("/{id}", h.Delete)

	// Group-based listing
	r.Get("/group/{groupId}", h.ListByGroup)

	// Split operations
	r.Post("/{id}/splits/{userId}/pay", h.MarkSplitAsPaid)

	return r
}

// Create handles POST /expenses
// @Summary      Create a new expense
// @Description  Create an expense paid by the caller with EQUAL, SHARES, PERCENT or EXACT splits
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateExpenseRequest true "Expense creation request"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	var req CreateExpenseRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	e, err := h.service.CreateExpense(r.Context(), creatorID, &req)
	if err != nil {
		writeError(w, err, "Failed to create expense")
		return
	}

	response.JSON(w, http.StatusCreated, e.ToResponse())
}

// GetByID handles GET /expenses/{id}
// @Summary      Get expense by ID
// @Description  Get an expense with all its splits
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Expense ID" format(uuid)
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	e, err := h.service.GetExpenseByID(r.Context(), id, callerID)
	if err != nil {
		writeError(w, err, "Failed to get expense")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// ListByGroup handles GET /expenses/group/{groupId}
// @Summary      List group expenses
// @Description  Get a paginated list of expenses for a group, newest first
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path string true "Group ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /expenses/group/{groupId} [get]
func (h *Handler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	groupID, err := request.UUIDParam(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	page, perPage := request.Pagination(r)

	expenses, total, err := h.service.ListExpensesByGroupID(r.Context(), groupID, callerID, page, perPage)
	if err != nil {
		writeError(w, err, "Failed to list expenses")
		return
	}

	expenseResponses := make([]*ExpenseResponse, len(expenses))
	for i, e := range expenses {
		expenseResponses[i] = e.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, expenseResponses, response.NewMeta(page, perPage, total))
}

// MarkSplitAsPaid handles POST /expenses/{id}/splits/{userId}/pay
// @Summary      Mark a split as paid
// @Description  The borrower or the payer records that the borrower paid their share
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Expense ID" format(uuid)
// @Param        userId path string true "Borrower user ID" format(uuid)
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /expenses/{id}/splits/{userId}/pay [post]
func (h *Handler) MarkSplitAsPaid(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	expenseID, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	userID, err := request.UUIDParam(r, "userId")
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	e, err := h.service.MarkSplitAsPaid(r.Context(), expenseID, userID, callerID)
	if err != nil {
		writeError(w, err, "Failed to mark split as paid")
		return
	}

	response.JSON(w, http.StatusOK, e.ToResponse())
}

// Delete handles DELETE /expenses/{id}
// @Summary      Delete an expense
// @Description  Delete an expense (only if no borrower has paid yet)
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Expense ID" format(uuid)
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /expenses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	id, err := request.UUIDParam(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	if err := h.service.DeleteExpense(r.Context(), id, callerID); err != nil {
		writeError(w, err, "Failed to delete expense")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, split.ErrInvalidSplitInput):
		response.InvalidSplitInput(w, err.Error())
	case errors.Is(err, ErrMissingGroupID), errors.Is(err, ErrInvalidDescription),
		errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrInvalidCurrency), errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, ErrParticipantNotMember):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrExpenseNotFound), errors.Is(err, ErrSplitNotFound),
		errors.Is(err, group.ErrGroupNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, group.ErrNotMember), errors.Is(err, ErrNotCreator),
		errors.Is(err, ErrNotAuthorized):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrCannotDeleteExpense):
		response.Conflict(w, err.Error())
	default:
		slog.Error("expense request failed", "error", err)
		response.InternalError(w, fallback)
	}
}
