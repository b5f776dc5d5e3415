package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle
// hook and becomes the Action field of the audit event.
const (
	ActionRetryScheduled  = "job.retry_scheduled"
	ActionJobDeadLettered = "job.dead_lettered"
	ActionEntryReplayed   = "dlq.replayed"
	ActionEntryDiscarded  = "dlq.discarded"
	ActionHealthEvaluated = "dlq.health_evaluated"
)

// Audit event categories group related actions.
const (
	CategoryRetry = "requeue.retry"
	CategoryDLQ   = "requeue.dlq"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceJob   = "job"
	ResourceEntry = "dlq_entry"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionRetryScheduled,
		ActionJobDeadLettered,
		ActionEntryReplayed,
		ActionEntryDiscarded,
		ActionHealthEvaluated,
	}
}
