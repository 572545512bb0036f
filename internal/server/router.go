package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/propform/proposals-tracker/internal/server/handler"
	"github.com/propform/proposals-tracker/internal/server/middleware"
)

// NewRouter assembles the HTTP surface: proposal REST routes plus health and
// metrics endpoints.
func NewRouter(h *handler.ProposalHandler, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.Recovery(logger),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/proposals", h.Upload)
		v1.GET("/proposals", h.List)
		v1.GET("/proposals/export", h.Export)
		v1.GET("/proposals/digest", h.Digest)
		v1.GET("/proposals/:id", h.Get)
		v1.PATCH("/proposals/:id/status", h.UpdateStatus)
		v1.PATCH("/proposals/:id", h.UpdateFields)
	}

	return r
}
