package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/club-activity-api/internal/dto"
	"github.com/noah-isme/club-activity-api/internal/models"
	"github.com/noah-isme/club-activity-api/pkg/response"
)

type activityService interface {
	Create(ctx context.Context, leaderID string, req dto.CreateActivityRequest) (*models.Activity, error)
	Get(ctx context.Context, id string) (*models.Activity, error)
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, *models.Pagination, error)
	RecordSession(ctx context.Context, actor *models.JWTClaims, id string) (*models.Activity, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
}

// ActivityHandler exposes seminar and study endpoints.
type ActivityHandler struct {
	service activityService
}

// NewActivityHandler constructs an ActivityHandler.
func NewActivityHandler(svc activityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// List godoc
// @Summary List activities
// @Tags Activities
// @Produce json
// @Param semester query int false "Semester (1 or 2)"
// @Param activity_type query string false "SEMINAR or STUDY"
// @Param available query bool false "Only activities with free seats"
// @Param tag query string false "Tag"
// @Param leader_id query string false "Leader user ID"
// @Param search query string false "Title search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	filter := models.ActivityFilter{
		Semester:     queryInt(c, "semester", 0),
		ActivityType: models.ActivityType(c.Query("activity_type")),
		Tag:          c.Query("tag"),
		LeaderID:     c.Query("leader_id"),
		Search:       c.Query("search"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 20),
	}
	if raw := c.Query("available"); raw != "" {
		if val, err := strconv.ParseBool(raw); err == nil {
			filter.Available = &val
		}
	}

	activities, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, pagination)
}

// Get godoc
// @Summary Get activity
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	activity, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

// Create godoc
// @Summary Create activity
// @Description The caller becomes the leader.
// @Tags Activities
// @Accept json
// @Produce json
// @Param payload body dto.CreateActivityRequest true "Activity"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /activities [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateActivityRequest
	if !bindJSON(c, &req, "invalid activity payload") {
		return
	}

	activity, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, activity)
}

// RecordSession godoc
// @Summary Record a completed session
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id}/sessions [post]
func (h *ActivityHandler) RecordSession(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	activity, err := h.service.RecordSession(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

// Delete godoc
// @Summary Delete activity
// @Tags Activities
// @Param id path string true "Activity ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
