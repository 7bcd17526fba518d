package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/studiodesk/backend/internal/metrics"
	"github.com/huangang/studiodesk/backend/internal/middleware"
	"github.com/huangang/studiodesk/backend/internal/services"
	"github.com/huangang/studiodesk/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(metrics.GinMiddleware())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.AppURL))

	authLimiter := middleware.NewRateLimiter(1, 10)
	joinLimiter := middleware.NewRateLimiter(0.5, 5)
	chatLimiter := middleware.NewRateLimiter(5, 20)

	// Project routes resolve membership before any handler binds a body.
	member := middleware.ProjectAccess(svc.guard, services.TierMember)
	admin := middleware.ProjectAccess(svc.guard, services.TierAdmin)

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.Static("/files", svc.storageDir)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/logout", svc.authHandler.Logout)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		api.GET("/cron/keep-alive", middleware.CronAuth(svc.cfg.Maintenance.CronSecret), svc.maintenanceHandler.KeepAlive)

		// EventSource cannot set headers; the stream accepts ?access_token=.
		api.GET("/projects/:id/events", middleware.StreamAuthRequired(), svc.eventsHandler.Stream)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog(svc.activity))
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.PUT("/auth/role", svc.authHandler.UpdateRole)

			// Projects
			protected.GET("/projects", svc.projectHandler.List)
			protected.POST("/projects", svc.projectHandler.Create)
			protected.POST("/projects/join", joinLimiter.Middleware(), svc.projectHandler.Join)
			protected.GET("/projects/:id", member, svc.projectHandler.GetByID)
			protected.GET("/projects/:id/members", member, svc.projectHandler.Members)
			protected.PATCH("/projects/:id/progress", admin, svc.projectHandler.UpdateProgress)
			protected.POST("/projects/:id/invites", admin, svc.inviteHandler.Send)
			protected.POST("/projects/:id/status-summary", member, svc.summaryHandler.StatusSummary)
			protected.GET("/projects/:id/activity", admin, svc.activityHandler.List)

			// Budget ledger
			protected.GET("/projects/:id/budget-items", member, svc.budgetHandler.List)
			protected.POST("/projects/:id/budget-items", member, svc.budgetHandler.Propose)
			protected.PATCH("/projects/:id/budget-items/:itemId/status", admin, svc.budgetHandler.SetStatus)

			// Invoices
			protected.GET("/projects/:id/invoices", member, svc.invoiceHandler.ListByProject)
			protected.POST("/projects/:id/invoices", admin, svc.invoiceHandler.Generate)
			protected.GET("/invoices", svc.invoiceHandler.ListMine)
			protected.GET("/invoices/:id", svc.invoiceHandler.GetByID)
			protected.PATCH("/invoices/:id/status", svc.invoiceHandler.SetStatus)

			// Chat
			protected.GET("/projects/:id/messages", member, svc.chatHandler.History)
			protected.POST("/projects/:id/messages", member, chatLimiter.Middleware(), svc.chatHandler.Send)

			// Sketches
			protected.GET("/projects/:id/sketches", member, svc.sketchHandler.List)
			protected.POST("/projects/:id/sketches", member, svc.sketchHandler.Save)
			protected.POST("/uploads", svc.sketchHandler.Upload)
		}
	}
}
