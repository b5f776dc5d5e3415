// Package api provides HTTP handlers for the requeue API.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/requeue"
	"github.com/xraph/requeue/id"
	"github.com/xraph/requeue/job"
)

func (a *API) getJobRecord(ctx forge.Context, _ *GetJobRequest) (*job.Record, error) {
	jobID, err := id.ParseJobID(ctx.Param("jobId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid job ID: %v", err))
	}

	if a.jobs == nil {
		return nil, forge.NotFound("job records are not available")
	}

	r, err := a.jobs.GetRecord(ctx.Context(), jobID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	return r, ctx.JSON(http.StatusOK, r)
}

// mapStoreError converts requeue sentinel errors to forge HTTP errors.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, requeue.ErrEntryNotFound) ||
		errors.Is(err, requeue.ErrJobRecordNotFound)
}
