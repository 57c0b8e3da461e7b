package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradhub/thesis-api/internal/models"
	"github.com/gradhub/thesis-api/internal/service"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
	"github.com/gradhub/thesis-api/pkg/response"
)

// ProfileHandler exposes the caller's own profile.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get godoc
// @Summary Get my profile
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Update godoc
// @Summary Update my profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UploadImage godoc
// @Summary Upload profile image
// @Tags Profile
// @Accept mpfd
// @Produce json
// @Param image formData file true "Profile image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /profile/image [post]
func (h *ProfileHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "image file required"))
		return
	}

	url, err := h.profiles.UploadImage(c.Request.Context(), claimsFromContext(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"profile_image": url}, nil)
}

// AddContribution godoc
// @Summary Add contribution
// @Description Record a publication on the calling student's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body models.CreateContributionRequest true "Contribution payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /profile/contributions [post]
func (h *ProfileHandler) AddContribution(c *gin.Context) {
	var req models.CreateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contribution payload"))
		return
	}

	contribution, err := h.profiles.AddContribution(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, contribution)
}

// UpdateContribution godoc
// @Summary Update contribution
// @Tags Profile
// @Accept json
// @Produce json
// @Param id path string true "Contribution ID"
// @Param payload body models.UpdateContributionRequest true "Contribution payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /profile/contributions/{id} [put]
func (h *ProfileHandler) UpdateContribution(c *gin.Context) {
	var req models.UpdateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contribution payload"))
		return
	}

	contribution, err := h.profiles.UpdateContribution(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contribution, nil)
}

// RemoveContribution godoc
// @Summary Remove contribution
// @Tags Profile
// @Produce json
// @Param id path string true "Contribution ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /profile/contributions/{id} [delete]
func (h *ProfileHandler) RemoveContribution(c *gin.Context) {
	if err := h.profiles.RemoveContribution(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
