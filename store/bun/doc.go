// Package bunstore provides a Bun ORM store for requeue on PostgreSQL.
// It mirrors the pgx store's semantics: transactional dead letter
// writes and version-guarded entry updates. The caller owns the
// *bun.DB lifecycle; Store never closes it.
package bunstore
