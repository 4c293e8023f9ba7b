package http

import (
	"fmt"

	"github.com/dukerupert/liftcheck"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes sets up all routes for the server.
// All routes are defined in this single file for easy navigation.
func (s *Server) registerRoutes() {
	// Health check routes (public)
	s.echo.GET("/health", s.handleHealthCheck)
	s.echo.GET("/health/live", s.handleLivenessCheck)
	s.echo.GET("/health/ready", s.handleReadinessCheck)

	if s.gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	if s.uploadsDir != "" {
		s.echo.Static("/uploads", s.uploadsDir)
	}

	api := s.echo.Group("/api")

	// Templates
	api.GET("/templates", s.handleListTemplates)
	api.GET("/templates/:id", s.handleGetTemplate)
	api.GET("/templates/:id/versions/:version", s.handleGetTemplateVersion)

	// Inspections
	api.POST("/inspections", s.handleStartInspection)
	api.GET("/inspections", s.handleListInspections)
	api.GET("/inspections/:id", s.handleGetInspection)
	api.GET("/inspections/:id/status", s.handleInspectionStatus)
	api.PUT("/inspections/:id/crane-status", s.handleSetCraneStatus)
	api.POST("/inspections/:id/complete", s.handleCompleteInspection)
	api.POST("/inspections/:id/reopen", s.handleReopenInspection)

	// Items
	item := api.Group("/inspections/:id/items/:section/:item")
	item.DELETE("", s.handleClearItem)
	item.POST("/pass", s.handleMarkPass)
	item.POST("/defect", s.handleToggleDefect)
	item.PUT("/defect", s.handleSaveDefect)
	item.PUT("/answer", s.handleAnswerItem)
	item.PUT("/quote", s.handleSetQuoteStatus)
	item.DELETE("/photos/:photoId", s.handleRemovePhoto)

	// Photo uploads: a full batch plus multipart overhead.
	upload := []echo.MiddlewareFunc{
		middleware.BodyLimit(fmt.Sprintf("%dM", (liftcheck.MaxPhotosPerItem+1)*liftcheck.MaxPhotoSize>>20)),
	}
	if s.uploadLimiter != nil {
		upload = append(upload, s.uploadLimiter.Middleware())
	}
	item.POST("/photos", s.handleAddPhotos, upload...)
	item.POST("/carry-forward", s.handleResolveCarryForward, upload...)
	api.POST("/inspections/:id/photos", s.handleStagePhotos, upload...)

	// Quotes
	api.GET("/quotes", s.handleListQuotes)
}
