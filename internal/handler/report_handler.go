package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradhub/thesis-api/internal/models"
	"github.com/gradhub/thesis-api/internal/service"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
	"github.com/gradhub/thesis-api/pkg/response"
)

// ReportHandler exposes progress report export endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Request godoc
// @Summary Queue progress report
// @Description Queue a CSV or PDF progress export for one thesis
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Thesis ID"
// @Param payload body models.CreateReportRequest true "Report payload"
// @Success 202 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /theses/{id}/reports [post]
func (h *ReportHandler) Request(c *gin.Context) {
	var req models.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	job, err := h.reports.Request(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Get godoc
// @Summary Get report job
// @Description Job status plus a signed download link once completed
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	job, err := h.reports.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download report
// @Description Stream a finished export using a signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	path, job, err := h.reports.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, "thesis-progress-"+job.ID+"."+string(job.Format))
}
