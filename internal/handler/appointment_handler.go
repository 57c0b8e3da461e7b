package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradhub/thesis-api/internal/models"
	"github.com/gradhub/thesis-api/internal/service"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
	"github.com/gradhub/thesis-api/pkg/response"
)

// AppointmentHandler exposes appointment endpoints.
type AppointmentHandler struct {
	appointments *service.AppointmentService
}

// NewAppointmentHandler constructs AppointmentHandler.
func NewAppointmentHandler(appointments *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// Create godoc
// @Summary Request appointment
// @Description Ask the thesis supervisor for a meeting
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body models.CreateAppointmentRequest true "Appointment payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req models.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appointment payload"))
		return
	}

	appointment, err := h.appointments.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appointment)
}

// ListByThesis godoc
// @Summary List thesis appointments
// @Tags Appointments
// @Produce json
// @Param id path string true "Thesis ID"
// @Success 200 {object} response.Envelope
// @Router /theses/{id}/appointments [get]
func (h *AppointmentHandler) ListByThesis(c *gin.Context) {
	appointments, err := h.appointments.ListByThesis(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointments, nil)
}

// Inbox godoc
// @Summary Appointment inbox
// @Description Appointments addressed to the calling faculty
// @Tags Appointments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /appointments/inbox [get]
func (h *AppointmentHandler) Inbox(c *gin.Context) {
	appointments, err := h.appointments.ListInbox(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointments, nil)
}

// Update godoc
// @Summary Update appointment
// @Description Supervisor decides a pending appointment; message and time stay editable
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body models.UpdateAppointmentRequest true "Appointment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id} [patch]
func (h *AppointmentHandler) Update(c *gin.Context) {
	var req models.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appointment payload"))
		return
	}

	appointment, err := h.appointments.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointment, nil)
}

// Delete godoc
// @Summary Delete appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c *gin.Context) {
	if err := h.appointments.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
