package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/model"
	"feedback-relay-go/internal/repository"
	"feedback-relay-go/internal/service/pipeline"
)

// SyncService is the pipeline entry point used by the HTTP layer
type SyncService interface {
	SyncConnection(ctx context.Context, connectionID string, trigger model.SyncTrigger, upperBound string) (*pipeline.SyncResult, error)
	Backfill(ctx context.Context, connectionID string, limit int) (*pipeline.SyncResult, error)
	StartWatch(ctx context.Context, connectionID string) (*connector.WatchResult, error)
	HandleMailboxPush(ctx context.Context, email, historyID string) (*pipeline.SyncResult, error)
	ResolveSupportDeskConnection(ctx context.Context, mailboxID string) (*model.Connection, error)
	HandleSupportDeskEvent(ctx context.Context, conn *model.Connection, conversationID string) (*pipeline.MessageResult, error)
}

// Scheduler is the control surface of the poll scheduler
type Scheduler interface {
	Start() error
	Stop() error
	IsRunning() bool
	RunOnce(ctx context.Context) error
	GetNextRun() time.Time
	GetLastRun() time.Time
}

// Handlers contains all HTTP handlers
type Handlers struct {
	repo          *repository.Repository
	syncer        SyncService
	scheduler     Scheduler
	gatherer      prometheus.Gatherer
	webhookSecret string
	backfillLimit int
}

// Options configures the handlers
type Options struct {
	// HelpScoutWebhookSecret is used when a connection has no secret of its own
	HelpScoutWebhookSecret string
	BackfillLimit          int
	// Gatherer backs /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
}

// NewHandlers creates new HTTP handlers
func NewHandlers(repo *repository.Repository, syncer SyncService, scheduler Scheduler, opts Options) *Handlers {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.BackfillLimit <= 0 {
		opts.BackfillLimit = 10
	}
	return &Handlers{
		repo:          repo,
		syncer:        syncer,
		scheduler:     scheduler,
		gatherer:      opts.Gatherer,
		webhookSecret: opts.HelpScoutWebhookSecret,
		backfillLimit: opts.BackfillLimit,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/gmail", h.GmailWebhook)
		webhooks.POST("/helpscout", h.HelpScoutWebhook)
	}

	api := router.Group("/api/v1")
	{
		api.POST("/products", h.CreateProduct)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/products/:id/messages", h.GetMessages)

		api.POST("/connections", h.CreateConnection)
		api.GET("/connections/:id", h.GetConnection)
		api.DELETE("/connections/:id", h.DeleteConnection)
		api.PATCH("/connections/:id/enable", h.EnableConnection)
		api.PATCH("/connections/:id/disable", h.DisableConnection)
		api.POST("/connections/:id/sync", h.SyncConnection)
		api.POST("/connections/:id/backfill", h.Backfill)
		api.POST("/connections/:id/watch", h.StartWatch)

		api.GET("/messages/:id", h.GetMessage)
		api.DELETE("/messages/:id", h.DeleteMessage)

		api.POST("/feedback", h.CreateFeedback)
		api.GET("/feedback/:id", h.GetFeedback)
		api.PUT("/feedback/:id/link", h.RelinkFeedback)
		api.DELETE("/feedback/:id", h.DeleteFeedback)

		api.GET("/feature-requests/:id", h.GetFeatureRequest)
		api.DELETE("/feature-requests/:id", h.DeleteFeatureRequest)

		api.GET("/sync-runs", h.GetSyncRuns)
		api.GET("/sync-runs/:id", h.GetSyncRun)

		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Metrics:   make(map[string]string),
	}

	if err := h.repo.Ping(c.Request.Context()); err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	if h.scheduler.IsRunning() {
		response.Metrics["scheduler"] = "running"
		response.Metrics["next_run"] = h.scheduler.GetNextRun().Format(time.RFC3339)
		response.Metrics["last_run"] = h.scheduler.GetLastRun().Format(time.RFC3339)
	} else {
		response.Metrics["scheduler"] = "stopped"
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

func writeError(c *gin.Context, code int, kind, message string) {
	c.JSON(code, ErrorResponse{
		Error:   kind,
		Message: message,
		Code:    code,
	})
}

// writeRepoError maps repository sentinels to HTTP responses
func writeRepoError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", what+" not found")
	case errors.Is(err, repository.ErrDuplicate):
		writeError(c, http.StatusConflict, "duplicate", what+" already exists")
	default:
		logrus.WithError(err).Errorf("Database error on %s", strings.ToLower(what))
		writeError(c, http.StatusInternalServerError, "database_error", "Failed to access "+strings.ToLower(what))
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return page, limit
}
