package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/job"
)

// API wires all Forge-style HTTP handlers for the requeue system.
type API struct {
	reader  *dlq.Reader
	actions *dlq.Actions
	health  *dlq.HealthCheck
	jobs    job.Store
	router  forge.Router
}

// New creates an API over the DLQ reader, operator actions, and health
// check. jobs may be nil; the job record endpoint then returns 404.
func New(reader *dlq.Reader, actions *dlq.Actions, health *dlq.HealthCheck, jobs job.Store, router forge.Router) *API {
	return &API{
		reader:  reader,
		actions: actions,
		health:  health,
		jobs:    jobs,
		router:  router,
	}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	a.RegisterRoutes(a.router)
	return a.router.Handler()
}

// RegisterRoutes registers all requeue API routes into the given Forge
// router with full OpenAPI metadata.
func (a *API) RegisterRoutes(router forge.Router) {
	a.registerDLQRoutes(router)
	a.registerJobRoutes(router)
}

// registerDLQRoutes registers dead letter queue management routes.
func (a *API) registerDLQRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("dlq"))

	_ = g.GET("/dlq", a.listDLQ,
		forge.WithSummary("List dead letter entries"),
		forge.WithDescription("Returns a page of dead letter entries, newest first."),
		forge.WithOperationID("listDeadLetters"),
		forge.WithRequestSchema(ListDLQRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Dead letter entry page", dlq.ListResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/dlq/metrics", a.dlqMetrics,
		forge.WithSummary("Dead letter queue metrics"),
		forge.WithDescription("Returns queue depth counters and the derived health level."),
		forge.WithOperationID("deadLetterMetrics"),
		forge.WithResponseSchema(http.StatusOK, "Queue metrics", dlq.MetricsResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/dlq/health", a.dlqHealth,
		forge.WithSummary("Dead letter queue health"),
		forge.WithDescription("Evaluates queue depth and pending age against thresholds."),
		forge.WithOperationID("deadLetterHealth"),
		forge.WithResponseSchema(http.StatusOK, "Health evaluation", HealthResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/dlq/:entryId", a.getDLQ,
		forge.WithSummary("Get dead letter entry"),
		forge.WithDescription("Returns full details of a specific dead letter entry."),
		forge.WithOperationID("getDeadLetter"),
		forge.WithResponseSchema(http.StatusOK, "Dead letter entry details", dlq.Detail{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/dlq/:entryId/replay", a.replayDLQ,
		forge.WithSummary("Replay dead letter entry"),
		forge.WithDescription("Re-enqueues the stored message as a fresh job. Expected failures are reported in the result body."),
		forge.WithOperationID("replayDeadLetter"),
		forge.WithRequestSchema(ReplayDLQRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Replay outcome", dlq.ReplayResult{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/dlq/:entryId/discard", a.discardDLQ,
		forge.WithSummary("Discard dead letter entry"),
		forge.WithDescription("Marks a pending entry as discarded. The entry is retained for audit."),
		forge.WithOperationID("discardDeadLetter"),
		forge.WithRequestSchema(DiscardDLQRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Discard outcome", dlq.DiscardResult{}),
		forge.WithErrorResponses(),
	)
}

// registerJobRoutes registers job record routes.
func (a *API) registerJobRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("jobs"))

	_ = g.GET("/jobs/:jobId", a.getJobRecord,
		forge.WithSummary("Get job record"),
		forge.WithDescription("Returns the status record of a processing job."),
		forge.WithOperationID("getJobRecord"),
		forge.WithResponseSchema(http.StatusOK, "Job record", &job.Record{}),
		forge.WithErrorResponses(),
	)
}
