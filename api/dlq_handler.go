package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/requeue/dlq"
	"github.com/xraph/requeue/id"
)

func (a *API) listDLQ(ctx forge.Context, req *ListDLQRequest) (*dlq.ListResponse, error) {
	filter, err := req.filter()
	if err != nil {
		return nil, forge.BadRequest(err.Error())
	}

	page, err := a.reader.List(ctx.Context(), filter, req.Page, req.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}

	resp := dlq.NewListResponse(page)
	return &resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getDLQ(ctx forge.Context, _ *GetDLQRequest) (*dlq.Detail, error) {
	entryID, err := id.ParseDLQID(ctx.Param("entryId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid dead letter entry ID: %v", err))
	}

	entry, err := a.reader.GetByID(ctx.Context(), entryID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	detail := dlq.NewDetail(entry)
	return &detail, ctx.JSON(http.StatusOK, detail)
}

// replayDLQ re-enqueues a dead letter entry. Expected operator-facing
// failures (not found, already discarded, version conflict) come back
// as a result body with Success=false, not as HTTP errors.
func (a *API) replayDLQ(ctx forge.Context, req *ReplayDLQRequest) (*dlq.ReplayResult, error) {
	entryID, err := id.ParseDLQID(ctx.Param("entryId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid dead letter entry ID: %v", err))
	}

	operator, err := parseOperator(req.UserID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid userId: %v", err))
	}

	result, err := a.actions.Replay(ctx.Context(), entryID, operator)
	if err != nil {
		return nil, fmt.Errorf("replay dead letter: %w", err)
	}

	return result, ctx.JSON(http.StatusOK, result)
}

func (a *API) discardDLQ(ctx forge.Context, req *DiscardDLQRequest) (*dlq.DiscardResult, error) {
	entryID, err := id.ParseDLQID(ctx.Param("entryId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid dead letter entry ID: %v", err))
	}

	operator, err := parseOperator(req.UserID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid userId: %v", err))
	}

	result, err := a.actions.Discard(ctx.Context(), entryID, operator)
	if err != nil {
		return nil, fmt.Errorf("discard dead letter: %w", err)
	}

	return result, ctx.JSON(http.StatusOK, result)
}

func (a *API) dlqMetrics(ctx forge.Context) error {
	metrics, err := a.reader.Metrics(ctx.Context())
	if err != nil {
		return fmt.Errorf("dead letter metrics: %w", err)
	}

	return ctx.JSON(http.StatusOK, dlq.NewMetricsResponse(metrics))
}

func (a *API) dlqHealth(ctx forge.Context) error {
	result := a.health.Check(ctx.Context())
	return ctx.JSON(http.StatusOK, newHealthResponse(result))
}
