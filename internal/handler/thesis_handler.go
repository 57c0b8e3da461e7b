package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
	"github.com/gradhub/thesis-api/pkg/response"
)

type thesisService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req models.CreateThesisRequest) (*models.Thesis, error)
	Join(ctx context.Context, actor *models.JWTClaims, req models.JoinThesisRequest) (*models.ThesisMember, error)
	ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.ThesisDetail, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.ThesisDetail, []models.ThesisMemberDetail, error)
	GetPublic(ctx context.Context, id string) (*models.ThesisPublic, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateThesisRequest) (*models.Thesis, error)
	RotateJoinPassword(ctx context.Context, actor *models.JWTClaims, id string) (string, error)
	Close(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateThesisStatusRequest) error
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	AddMember(ctx context.Context, actor *models.JWTClaims, thesisID string, req models.AddThesisMemberRequest) (*models.ThesisMember, error)
	RemoveMember(ctx context.Context, actor *models.JWTClaims, thesisID, studentID string) error
}

// ThesisHandler exposes thesis lifecycle endpoints.
type ThesisHandler struct {
	theses thesisService
}

// NewThesisHandler constructs ThesisHandler.
func NewThesisHandler(theses thesisService) *ThesisHandler {
	return &ThesisHandler{theses: theses}
}

// Create godoc
// @Summary Create thesis
// @Description Start a new thesis owned by the calling student
// @Tags Theses
// @Accept json
// @Produce json
// @Param payload body models.CreateThesisRequest true "Thesis payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /theses [post]
func (h *ThesisHandler) Create(c *gin.Context) {
	var req models.CreateThesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid thesis payload"))
		return
	}

	thesis, err := h.theses.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, thesis)
}

// Join godoc
// @Summary Join thesis
// @Description Enroll the calling student using the thesis code and join password
// @Tags Theses
// @Accept json
// @Produce json
// @Param payload body models.JoinThesisRequest true "Join payload"
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /theses/join [post]
func (h *ThesisHandler) Join(c *gin.Context) {
	var req models.JoinThesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid join payload"))
		return
	}

	member, err := h.theses.Join(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// ListMine godoc
// @Summary List my theses
// @Description Theses the caller belongs to or supervises
// @Tags Theses
// @Produce json
// @Param unsupervised query bool false "Only theses without a supervisor"
// @Param status query string false "Only theses in this status" Enums(PENDING_SUPERVISOR, ACTIVE, INACTIVE)
// @Success 200 {object} response.Envelope
// @Router /theses [get]
func (h *ThesisHandler) ListMine(c *gin.Context) {
	theses, err := h.theses.ListMine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if c.Query("unsupervised") == "true" {
		unsupervised := make([]models.ThesisDetail, 0, len(theses))
		for _, t := range theses {
			if t.SupervisorID == nil {
				unsupervised = append(unsupervised, t)
			}
		}
		theses = unsupervised
	}
	if status := c.Query("status"); status != "" {
		matching := make([]models.ThesisDetail, 0, len(theses))
		for _, t := range theses {
			if t.Status == models.ThesisStatus(status) {
				matching = append(matching, t)
			}
		}
		theses = matching
	}
	response.JSON(c, http.StatusOK, theses, nil)
}

// Get godoc
// @Summary Get thesis detail
// @Description Full detail for members, supervisor, and admins; a redacted
// @Description public view for everyone else
// @Tags Theses
// @Produce json
// @Param id path string true "Thesis ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /theses/{id} [get]
func (h *ThesisHandler) Get(c *gin.Context) {
	id := c.Param("id")
	claims := claimsFromContext(c)

	if claims != nil {
		detail, members, err := h.theses.Get(c.Request.Context(), claims, id)
		if err == nil {
			response.JSON(c, http.StatusOK, gin.H{"thesis": detail, "members": members}, nil)
			return
		}
		var typed *appErrors.Error
		if !errors.As(err, &typed) || typed.Code != appErrors.ErrForbidden.Code {
			response.Error(c, err)
			return
		}
	}

	public, err := h.theses.GetPublic(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, public, nil)
}

// Update godoc
// @Summary Update thesis
// @Tags Theses
// @Accept json
// @Produce json
// @Param id path string true "Thesis ID"
// @Param payload body models.UpdateThesisRequest true "Thesis payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /theses/{id} [put]
func (h *ThesisHandler) Update(c *gin.Context) {
	var req models.UpdateThesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid thesis payload"))
		return
	}

	thesis, err := h.theses.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thesis, nil)
}

// RotatePassword godoc
// @Summary Rotate join password
// @Description Issue a fresh join password, invalidating the previous one
// @Tags Theses
// @Produce json
// @Param id path string true "Thesis ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /theses/{id}/join-password [post]
func (h *ThesisHandler) RotatePassword(c *gin.Context) {
	password, err := h.theses.RotateJoinPassword(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"join_password": password}, nil)
}

// UpdateStatus godoc
// @Summary Close thesis
// @Description Mark an active thesis as finished
// @Tags Theses
// @Accept json
// @Produce json
// @Param id path string true "Thesis ID"
// @Param payload body models.UpdateThesisStatusRequest true "Status payload"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /theses/{id}/status [patch]
func (h *ThesisHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateThesisStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	if err := h.theses.Close(c.Request.Context(), claimsFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete thesis
// @Description Remove a thesis that never had a supervisor assigned
// @Tags Theses
// @Produce json
// @Param id path string true "Thesis ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /theses/{id} [delete]
func (h *ThesisHandler) Delete(c *gin.Context) {
	if err := h.theses.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddMember godoc
// @Summary Add member
// @Description Creator enrolls a student by email without the join password
// @Tags Theses
// @Accept json
// @Produce json
// @Param id path string true "Thesis ID"
// @Param payload body models.AddThesisMemberRequest true "Member payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /theses/{id}/members [post]
func (h *ThesisHandler) AddMember(c *gin.Context) {
	var req models.AddThesisMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid member payload"))
		return
	}

	member, err := h.theses.AddMember(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// RemoveMember godoc
// @Summary Remove member
// @Description Creator removes a non-creator member from the thesis
// @Tags Theses
// @Produce json
// @Param id path string true "Thesis ID"
// @Param studentId path string true "Student ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /theses/{id}/members/{studentId} [delete]
func (h *ThesisHandler) RemoveMember(c *gin.Context) {
	if err := h.theses.RemoveMember(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
