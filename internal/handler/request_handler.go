package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradhub/thesis-api/internal/models"
	"github.com/gradhub/thesis-api/internal/service"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
	"github.com/gradhub/thesis-api/pkg/response"
)

// RequestHandler exposes supervisor request endpoints.
type RequestHandler struct {
	requests *service.RequestService
}

// NewRequestHandler constructs RequestHandler.
func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// Create godoc
// @Summary Request supervisor
// @Description Propose a faculty member as the thesis supervisor
// @Tags Supervisor Requests
// @Accept json
// @Produce json
// @Param payload body models.CreateSupervisorRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /supervisor-requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var req models.CreateSupervisorRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	request, err := h.requests.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Decide godoc
// @Summary Decide supervisor request
// @Description Accept or reject a pending request addressed to the caller
// @Tags Supervisor Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.DecideRequestPayload true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /supervisor-requests/{id} [patch]
func (h *RequestHandler) Decide(c *gin.Context) {
	var req models.DecideRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	request, err := h.requests.Decide(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Withdraw godoc
// @Summary Withdraw supervisor request
// @Description Soft-delete a pending request created by the caller's thesis
// @Tags Supervisor Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /supervisor-requests/{id} [delete]
func (h *RequestHandler) Withdraw(c *gin.Context) {
	if err := h.requests.Withdraw(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByThesis godoc
// @Summary List thesis requests
// @Description Supervisor requests of one thesis, withdrawn ones excluded
// @Tags Supervisor Requests
// @Produce json
// @Param id path string true "Thesis ID"
// @Success 200 {object} response.Envelope
// @Router /theses/{id}/supervisor-requests [get]
func (h *RequestHandler) ListByThesis(c *gin.Context) {
	requests, err := h.requests.ListByThesis(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Inbox godoc
// @Summary Pending requests inbox
// @Description Pending supervisor requests addressed to the calling faculty
// @Tags Supervisor Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /supervisor-requests/inbox [get]
func (h *RequestHandler) Inbox(c *gin.Context) {
	requests, err := h.requests.ListInbox(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}
