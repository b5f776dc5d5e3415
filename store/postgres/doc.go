// Package postgres provides a PostgreSQL-backed store for requeue using
// pgx/v5. Dead letter writes run in a single transaction so the entry
// insert and the job record flip commit or roll back together, and
// entry updates are guarded by an optimistic version column.
package postgres
