package postgres

import (
	"database/sql"
	"fmt"

	"github.com/jwalitptl/hospital-api/internal/repository"
)

func expectOneRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for %s: %w", op, err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// paginate appends LIMIT/OFFSET; a zero limit leaves the query unbounded.
func paginate(query string, args []interface{}, limit, offset int) (string, []interface{}) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
