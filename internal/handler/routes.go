package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/club-activity-api/internal/middleware"
)

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Auth           *AuthHandler
	Users          *UserHandler
	Activities     *ActivityHandler
	Participations *ParticipationHandler
	Reports        *ReportHandler
	Metrics        *MetricsHandler
}

// RegisterRoutes mounts the probes at the root and the API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, tokens middleware.TokenValidator, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/signup", h.Auth.Signup)
	auth.POST("/login", h.Auth.Login)

	activities := api.Group("/activities")
	activities.GET("", h.Activities.List)
	activities.GET("/:id", h.Activities.Get)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	secured.GET("/metrics/snapshot", middleware.RequireAdmin(), h.Metrics.Snapshot)

	users := secured.Group("/users")
	users.GET("", middleware.RequireAdmin(), h.Users.List)
	users.GET("/:id", middleware.AdminOrSelf(), h.Users.Get)
	users.GET("/:id/hours", middleware.AdminOrSelf(), h.Users.Hours)
	users.PATCH("/:id/flags", middleware.RequireAdmin(), h.Users.UpdateFlags)
	users.DELETE("/:id", middleware.AdminOrSelf(), h.Users.Delete)

	managed := secured.Group("/activities")
	managed.POST("", h.Activities.Create)
	managed.DELETE("/:id", h.Activities.Delete)
	managed.POST("/:id/sessions", h.Activities.RecordSession)
	managed.POST("/:id/participations", h.Participations.Join)
	managed.GET("/:id/participations/pending", h.Participations.Pending)

	participations := secured.Group("/participations")
	participations.POST("/approvals", h.Participations.ApproveAll)
	participations.POST("/:id/approve", h.Participations.Approve)
	participations.POST("/:id/reject", h.Participations.Reject)
	participations.DELETE("/:id", h.Participations.Withdraw)

	secured.GET("/reports/roster", middleware.RequireAdmin(), h.Reports.Roster)
}
