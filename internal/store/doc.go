// Package store provides a generic repository over the SQLite database.
//
// A Repository[T] is parameterised by a Mapper[T] describing the entity's
// table, columns, and row scanning. On top of it sits a typed predicate
// builder (Eq, Ne, Gt, ... IsNull) used for filtered reads and deletes;
// unknown field names fail with ErrUnknownField rather than producing
// broken SQL.
//
// Every call is a single implicit transaction. There is no multi-call
// transaction support: combined operations cannot be rolled back together.
// Unique constraint violations are reported as ErrConflict, making the
// database schema the final authority on uniqueness.
package store
