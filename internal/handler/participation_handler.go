package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/club-activity-api/internal/dto"
	"github.com/noah-isme/club-activity-api/internal/models"
	"github.com/noah-isme/club-activity-api/pkg/response"
)

type participationService interface {
	RequestJoin(ctx context.Context, userID, activityID string, req dto.JoinRequest) (*models.Participation, error)
	Approve(ctx context.Context, actor *models.JWTClaims, participationID string) (*models.Participation, error)
	Reject(ctx context.Context, actor *models.JWTClaims, participationID string) error
	Withdraw(ctx context.Context, actor *models.JWTClaims, participationID string) error
	ListPendingRequests(ctx context.Context, actor *models.JWTClaims, activityID string) ([]dto.PendingRequest, error)
	ApproveAll(ctx context.Context, actor *models.JWTClaims, req dto.BulkApprovalRequest) (*dto.BulkApprovalSummary, error)
}

// ParticipationHandler exposes the join and review workflow.
type ParticipationHandler struct {
	service participationService
}

// NewParticipationHandler constructs a ParticipationHandler.
func NewParticipationHandler(svc participationService) *ParticipationHandler {
	return &ParticipationHandler{service: svc}
}

// Join godoc
// @Summary Request to join an activity
// @Description Open activities admit immediately; others wait for the leader.
// @Tags Participations
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body dto.JoinRequest false "Reason"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /activities/{id}/participations [post]
func (h *ParticipationHandler) Join(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.JoinRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid join payload") {
		return
	}

	participation, err := h.service.RequestJoin(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, participation)
}

// Pending godoc
// @Summary Pending join requests
// @Tags Participations
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /activities/{id}/participations/pending [get]
func (h *ParticipationHandler) Pending(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	pending, err := h.service.ListPendingRequests(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// Approve godoc
// @Summary Approve a join request
// @Tags Participations
// @Produce json
// @Param id path string true "Participation ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /participations/{id}/approve [post]
func (h *ParticipationHandler) Approve(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	participation, err := h.service.Approve(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participation, nil)
}

// Reject godoc
// @Summary Reject a participation
// @Tags Participations
// @Param id path string true "Participation ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /participations/{id}/reject [post]
func (h *ParticipationHandler) Reject(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Reject(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Withdraw godoc
// @Summary Withdraw a participation
// @Description The participant or the activity leader removes the participation.
// @Tags Participations
// @Param id path string true "Participation ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /participations/{id} [delete]
func (h *ParticipationHandler) Withdraw(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Withdraw(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ApproveAll godoc
// @Summary Bulk approve join requests
// @Description Entries are processed in order; each gets its own outcome.
// @Tags Participations
// @Accept json
// @Produce json
// @Param payload body dto.BulkApprovalRequest true "Requests"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /participations/approvals [post]
func (h *ParticipationHandler) ApproveAll(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.BulkApprovalRequest
	if !bindJSON(c, &req, "invalid bulk approval payload") {
		return
	}

	summary, err := h.service.ApproveAll(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
