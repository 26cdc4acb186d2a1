package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/club-activity-api/internal/dto"
	"github.com/noah-isme/club-activity-api/internal/models"
	"github.com/noah-isme/club-activity-api/pkg/response"
)

type userService interface {
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateFlags(ctx context.Context, id string, flags models.MembershipFlags) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type hourService interface {
	Summary(ctx context.Context, userID string) (*dto.HourSummary, error)
}

// UserHandler handles member endpoints.
type UserHandler struct {
	users userService
	hours hourService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users userService, hours hourService) *UserHandler {
	return &UserHandler{users: users, hours: hours}
}

// List godoc
// @Summary List members
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// Get godoc
// @Summary Get member
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Hours godoc
// @Summary Member hours
// @Description Attending and leading hours with the qualification verdict
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/hours [get]
func (h *UserHandler) Hours(c *gin.Context) {
	summary, err := h.hours.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// UpdateFlags godoc
// @Summary Update membership flags
// @Description Admin only. Omitted flags are left untouched.
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body models.MembershipFlags true "Flags"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/flags [patch]
func (h *UserHandler) UpdateFlags(c *gin.Context) {
	var flags models.MembershipFlags
	if !bindJSON(c, &flags, "invalid flags payload") {
		return
	}

	user, err := h.users.UpdateFlags(c.Request.Context(), c.Param("id"), flags)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Delete member
// @Description Removes the member and their participations, releasing confirmed seats.
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
