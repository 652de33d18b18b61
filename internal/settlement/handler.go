package settlement

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/mixi/internal/group"
	"github.com/fkhayef/mixi/pkg/middleware"
	"github.com/fkhayef/mixi/pkg/request"
	"github.com/fkhayef/mixi/pkg/response"
)

// IdempotencyKeyHeader may carry the key instead of the request body
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler handles HTTP requests for settlement operations
type Handler struct {
	service *Service
}

// NewHandler creates a new settlement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for settlement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/groups/{groupId}", func(r chi.Router) {
		r.Get("/", h.History)
		r.Post("/", h.SettleWith)
		r.Post("/all", h.SettleAll)
		r.Get("/simplified", h.Simplified)
		r.Get("/net", h.Net)
		r.Get("/net/me", h.MyNet)
	})

	return r
}

// Simplified handles GET /settlements/groups/{groupId}/simplified
// @Summary      Suggested payments
// @Description  The short list of payments that clears every open balance in the group
// @Tags         settlements
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path string true "Group ID" format(uuid)
// @Success      200 {object} response.APIResponse{data=[]SimplifiedDebt}
// @Failure      403 {object} response.APIResponse
// @Router       /settlements/groups/{groupId}/simplified [get]
func (h *Handler) Simplified(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	groupID, err := request.UUIDParam(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	debts, err := h.service.SimplifiedDebts(r.Context(), groupID, callerID)
	if err != nil {
		writeError(w, err, "Failed to simplify debts")
		return
	}

	if debts == nil {
		debts = []SimplifiedDebt{}
	}
	response.JSON(w, http.StatusOK, debts)
}

// Net handles GET /settlements/groups/{groupId}/net
// @Summary      Pairwise net debts
// @Description  Net open debt between every pair of members
// @Tags         settlements
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path string true "Group ID" format(uuid)
// @Success      200 {object} response.APIResponse{data=[]SimplifiedDebt}
// @Failure      403 {object} response.APIResponse
// @Router       /settlements/groups/{groupId}/net [get]
func (h *Handler) Net(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	groupID, err := request.UUIDParam(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	debts, err := h.service.NetDebts(r.Context(), groupID, callerID)
	if err != nil {
		writeError(w, err, "Failed to compute net debts")
		return
	}

	if debts == nil {
		debts = []SimplifiedDebt{}
	}
	response.JSON(w, http.StatusOK, debts)
}

// MyNet handles GET /settlements/groups/{groupId}/net/me
// @Summary      My net balances
// @Description  Who the caller owes and who owes the caller
// @Tags         settlements
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path string true "Group ID" format(uuid)
// @Success      200 {object} response.APIResponse{data=[]NetBalanceResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /settlements/groups/{groupId}/net/me [get]
func (h *Handler) MyNet(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	groupID, err := request.UUIDParam(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	balances, currency, err := h.service.MyNetBalances(r.Context(), groupID, callerID)
	if err != nil {
		writeError(w, err, "Failed to get net balances")
		return
	}

	responses := make([]*NetBalanceResponse, len(balances))
	for i, b := range balances {
		responses[i] = b.ToResponse(currency)
	}

	response.JSON(w, http.StatusOK, responses)
}

// SettleWith handles POST /settlements/groups/{groupId}
// @Summary      Settle up with a member
// @Description  Marks every open split between the caller and the other member paid and records the net payment. Retrying with the same idempotency key returns the stored batch.
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path string true "Group ID" format(uuid)
// @Param        request body SettlePairRequest true "Settlement request"
// @Param        Idempotency-Key header string false "Used when the body carries no idempotency_key"
// @Success      201 {object} response.APIResponse{data=BatchResponse}
// @Success      200 {object} response.APIResponse{data=BatchResponse} "Replayed"
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /settlements/groups/{groupId} [post]
func (h *Handler) SettleWith(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	groupID, err := request.UUIDParam(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req SettlePairRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)
	}

	batch, replayed, err := h.service.SettleWith(r.Context(), groupID, callerID, &req)
	if err != nil {
		writeError(w, err, "Failed to settle")
		return
	}

	writeBatch(w, batch, replayed)
}

// SettleAll handles POST /settlements/groups/{groupId}/all
// @Summary      Settle the whole group
// @Description  Records every suggested payment and marks every open split paid in one transaction
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path string true "Group ID" format(uuid)
// @Param        request body SettleAllRequest true "Settlement request"
// @Param        Idempotency-Key header string false "Used when the body carries no idempotency_key"
// @Success      201 {object} response.APIResponse{data=BatchResponse}
// @Success      200 {object} response.APIResponse{data=BatchResponse} "Replayed"
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /settlements/groups/{groupId}/all [post]
func (h *Handler) SettleAll(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.RequireUserID(w, r)
	if !ok {
		return
	}

	groupID, err := request.UUIDParam(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req SettleAllRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)
	}

	batch, replayed, err := h.service.SettleAll(r.Context(), groupID, callerID, &req)
	if err != nil {
		writeError(w, err, "Failed to settle group")
		return
	}

	writeBatch(w, batch, replayed)
}

// History handles GET /settlements/groups/{groupId}
// @Summary      Settlement history
// @Tags         settlements
// @Produce      json
// @Security     BearerAuth
// @Param        groupId path string true "Group ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]BatchResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /settlements/groups/{groupId} [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
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

	batches, total, err := h.service.History(r.Context(), groupID, callerID, page, perPage)
	if err != nil {
		writeError(w, err, "Failed to list settlements")
		return
	}

	responses := make([]*BatchResponse, len(batches))
	for i, b := range batches {
		responses[i] = b.ToResponse(false)
	}

	response.JSONWithMeta(w, http.StatusOK, responses, response.NewMeta(page, perPage, total))
}

func writeBatch(w http.ResponseWriter, batch *Batch, replayed bool) {
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	response.JSON(w, status, batch.ToResponse(replayed))
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrCannotSettleSelf), errors.Is(err, ErrNothingToSettle),
		errors.Is(err, ErrOtherNotMember), errors.Is(err, ErrMissingOtherUser),
		errors.Is(err, ErrMissingIdempotencyKey), errors.Is(err, ErrInvalidIdempotencyKey):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrKeyReused):
		response.Conflict(w, err.Error())
	case errors.Is(err, group.ErrGroupNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, group.ErrNotMember):
		response.Forbidden(w, err.Error())
	default:
		slog.Error("settlement request failed", "error", err)
		response.InternalError(w, fallback)
	}
}
