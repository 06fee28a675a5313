package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/paperpilot/internal/store"
)

// sqlstateErrors maps the SQLSTATE codes task_records can raise to store
// sentinels.
var sqlstateErrors = map[string]error{
	"23505": store.ErrDuplicate,     // unique_violation
	"23514": store.ErrInvalidEntity, // check_violation
	"23502": store.ErrInvalidEntity, // not_null_violation
	"22001": store.ErrInvalidEntity, // string_data_right_truncation
	"22P02": store.ErrInvalidEntity, // invalid_text_representation
}

// MapError translates a driver error into a store sentinel wrapping the
// original. Unrecognised errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrTaskRecordNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	sentinel, ok := sqlstateErrors[pgErr.Code]
	if !ok {
		return err
	}
	if name := pgErr.ConstraintName; name != "" {
		return fmt.Errorf("%w (%s): %v", sentinel, name, err)
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// CheckRowsAffected reports store.ErrTaskRecordNotFound when an update
// matched nothing.
func CheckRowsAffected(result sql.Result) error {
	if result == nil {
		return errors.New("check rows affected: nil result")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrTaskRecordNotFound
	}
	return nil
}
