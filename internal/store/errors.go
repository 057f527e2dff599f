package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrDuplicateNaturalKey is returned when a create would violate the
	// natural-key uniqueness rule: another record with the same natural key
	// exists and is not soft-deleted.
	ErrDuplicateNaturalKey = errors.New("natural key already exists")

	// ErrRecordNotFound is returned when a query or mutation targets a
	// record key that does not exist in the database.
	ErrRecordNotFound = errors.New("record was not found")

	// ErrOperationNotFound is returned when a queue mutation targets an
	// operation id that does not exist, typically because the operation
	// completed and was deleted concurrently.
	ErrOperationNotFound = errors.New("queued operation was not found")

	// ErrConflictNotFound is returned when conflict lookup or resolution
	// targets a record with no open conflict.
	ErrConflictNotFound = errors.New("conflict was not found")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")
)
